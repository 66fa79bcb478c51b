// Package mixer combines a stage's per-tick frame map into one composed
// output frame and owns the live master volume. Like the stage, a mixer
// serializes everything through its own queue; volume changes ride the high
// lane so they land ahead of queued mix work.
package mixer

import (
	"fmt"
	"image/color"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/tjscheier/playout/executor"
	"github.com/tjscheier/playout/frame"
)

// Mixer folds per-layer frames into one composed frame per tick.
type Mixer struct {
	exec  *executor.Executor
	audio *AudioMixer
	image *ImageMixer
	log   *log.Entry
}

// New creates a mixer running its own queue.
func New(name string) *Mixer {
	return &Mixer{
		exec:  executor.New(name),
		audio: NewAudioMixer(),
		image: NewImageMixer(),
		log:   log.WithField("prefix", name),
	}
}

// Close stops the mixer's queue.
func (m *Mixer) Close() {
	m.exec.Close()
}

// Mix composes one tick's frame map against the format and blocks until the
// composed frame is ready. A failed mix logs and yields an empty frame for
// this tick only; the driver always gets a frame back.
func (m *Mixer) Mix(frames map[int]*frame.Draw, format frame.Format) frame.Const {
	var out frame.Const
	m.exec.Invoke(executor.Normal, func() {
		out = m.mixTick(frames, format)
	})
	return out
}

func (m *Mixer) mixTick(frames map[int]*frame.Draw, format frame.Format) (out frame.Const) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithError(fmt.Errorf("%v", r)).Error("mix failed, returning empty frame")
			out = frame.EmptyConst()
		}
	}()

	indices := make([]int, 0, len(frames))
	for i := range frames {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, i := range indices {
		f := frames[i]
		if f == nil {
			continue
		}
		// Per-tick layer stacking is flattened into a single pass.
		f.Transform.LayerDepth = 1
		frame.Walk(f, m.audio)
		frame.Walk(f, m.image)
	}

	audio := m.audio.Finalize(format)
	img := m.image.Finalize(format)

	return frame.Const{
		Image:  img,
		Audio:  audio,
		Pixels: frame.PixelFormat{Width: format.Width, Height: format.Height, BytesPerPixel: 4},
		Format: format.Name,
	}
}

// SetMasterVolume applies a new master volume ahead of any queued mix work.
func (m *Mixer) SetMasterVolume(v float64) {
	m.exec.Begin(executor.High, func() {
		m.audio.SetMasterVolume(v)
	})
}

// GetMasterVolume reads the master volume back through the same queue, so a
// preceding SetMasterVolume from the same caller is always visible.
func (m *Mixer) GetMasterVolume() float64 {
	return executor.Submit(m.exec, executor.High, func() float64 {
		return m.audio.GetMasterVolume()
	}).Get()
}

// SetBackground sets the color layers composite onto.
func (m *Mixer) SetBackground(c color.RGBA) {
	m.exec.Begin(executor.High, func() {
		m.image.SetBackground(c)
	})
}

// CreateFrame allocates a mutable frame buffer for a producer, delegated
// entirely to the image backend's tag-keyed pool.
func (m *Mixer) CreateFrame(tag string, desc frame.PixelFormat) *Mutable {
	return m.image.CreateFrame(tag, desc)
}

// Info returns a status snapshot. Currently empty, reserved for diagnostics.
func (m *Mixer) Info() map[string]string {
	return map[string]string{}
}
