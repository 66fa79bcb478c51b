package mixer

import (
	"math"

	"github.com/tjscheier/playout/frame"
)

type audioItem struct {
	samples []int32
	gain    float64
}

// AudioMixer accumulates the audio contributions of one tick's frames and
// folds them into a single interleaved stereo buffer. It is owned by the
// mixer's queue; only CreateFrame-style reads happen elsewhere.
type AudioMixer struct {
	items      []audioItem
	master     float64
	prevMaster float64
}

// NewAudioMixer creates an accumulator at unity master volume.
func NewAudioMixer() *AudioMixer {
	return &AudioMixer{master: 1, prevMaster: 1}
}

// VisitLeaf folds one leaf's audio contribution, weighted by the volume and
// opacity accumulated along its transform chain. Key/matte content is
// silent.
func (m *AudioMixer) VisitLeaf(leaf *frame.Draw, combined frame.Transform) {
	if len(leaf.Audio) == 0 || combined.IsKey {
		return
	}
	gain := combined.Volume * combined.Opacity
	if gain <= 0 {
		return
	}
	m.items = append(m.items, audioItem{samples: leaf.Audio, gain: gain})
}

// SetMasterVolume sets the master volume applied on the next finalize.
func (m *AudioMixer) SetMasterVolume(v float64) {
	m.master = v
}

// GetMasterVolume returns the current master volume.
func (m *AudioMixer) GetMasterVolume() float64 {
	return m.master
}

// Finalize mixes everything visited since the last call into one buffer of
// the format's cadence. The master volume ramps linearly from its previous
// value across the tick so live changes do not click.
func (m *AudioMixer) Finalize(format frame.Format) []int32 {
	cadence := format.AudioCadence()
	mixed := make([]float64, cadence*2)
	for _, item := range m.items {
		n := len(item.samples)
		if n > len(mixed) {
			n = len(mixed)
		}
		for i := 0; i < n; i++ {
			mixed[i] += float64(item.samples[i]) * item.gain
		}
	}
	m.items = m.items[:0]

	out := make([]int32, cadence*2)
	for i := 0; i < cadence; i++ {
		p := 0.0
		if cadence > 1 {
			p = float64(i) / float64(cadence-1)
		}
		gain := m.prevMaster + (m.master-m.prevMaster)*p
		out[i*2] = saturate(mixed[i*2] * gain)
		out[i*2+1] = saturate(mixed[i*2+1] * gain)
	}
	m.prevMaster = m.master
	return out
}

func saturate(v float64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}
