package stage

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/tjscheier/playout/frame"
)

// Flags are the per-tick processing hints the stage passes down to a
// producer.
type Flags int

const (
	FlagNone        Flags = 0
	FlagDeinterlace Flags = 1 << 0
	FlagAlphaOnly   Flags = 1 << 1
)

// A Producer generates one raw frame per tick for the layer it is loaded
// into. The stage never interprets the frame's content.
type Producer interface {
	Receive(flags Flags) (*frame.Draw, error)
	Name() string
}

// Bounded is implemented by producers with a known remaining length, which
// lets a layer auto-promote its queued background near the end.
type Bounded interface {
	FramesLeft() int
}

// ColorProducer renders a solid color, the simplest useful content source.
type ColorProducer struct {
	name string
	img  *image.RGBA
}

// NewColorProducer creates a producer that fills width x height pixels with
// the given hex color.
func NewColorProducer(hex string, width, height int) (*ColorProducer, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, err
	}
	r, g, b := c.Clamped().RGB255()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return &ColorProducer{name: "color " + hex, img: img}, nil
}

// Receive returns the same solid frame every tick.
func (p *ColorProducer) Receive(flags Flags) (*frame.Draw, error) {
	return frame.NewLeaf(p.img, nil, p.name), nil
}

// Name returns a printable identity for status reports.
func (p *ColorProducer) Name() string {
	return p.name
}
