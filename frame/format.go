package frame

import "time"

// FieldMode describes whether a format is progressive or interlaced, and
// which field is transmitted first when it is interlaced.
type FieldMode int

const (
	Progressive FieldMode = iota
	Upper
	Lower
)

func (m FieldMode) String() string {
	switch m {
	case Upper:
		return "upper"
	case Lower:
		return "lower"
	default:
		return "progressive"
	}
}

// Format describes the target video format a channel plays out in.
type Format struct {
	Name         string
	Width        int
	Height       int
	SquareWidth  int
	SquareHeight int
	FPS          float64
	FieldMode    FieldMode
	SampleRate   int
}

// Interval returns the duration of one tick at the format's frame rate.
func (f Format) Interval() time.Duration {
	return time.Duration(float64(time.Second) / f.FPS)
}

// AudioCadence returns the number of audio samples per channel that one
// tick covers.
func (f Format) AudioCadence() int {
	return int(float64(f.SampleRate) / f.FPS)
}

var formats = []Format{
	{Name: "PAL", Width: 720, Height: 576, SquareWidth: 1024, SquareHeight: 576, FPS: 25, FieldMode: Upper, SampleRate: 48000},
	{Name: "720p50", Width: 1280, Height: 720, SquareWidth: 1280, SquareHeight: 720, FPS: 50, FieldMode: Progressive, SampleRate: 48000},
	{Name: "1080i50", Width: 1920, Height: 1080, SquareWidth: 1920, SquareHeight: 1080, FPS: 25, FieldMode: Upper, SampleRate: 48000},
	{Name: "1080p25", Width: 1920, Height: 1080, SquareWidth: 1920, SquareHeight: 1080, FPS: 25, FieldMode: Progressive, SampleRate: 48000},
	{Name: "1080p50", Width: 1920, Height: 1080, SquareWidth: 1920, SquareHeight: 1080, FPS: 50, FieldMode: Progressive, SampleRate: 48000},
}

// FormatByName looks up a format preset by its name.
func FormatByName(name string) (Format, bool) {
	for _, f := range formats {
		if f.Name == name {
			return f, true
		}
	}
	return Format{}, false
}
