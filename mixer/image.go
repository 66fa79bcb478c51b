package mixer

import (
	"image"
	"image/color"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/tjscheier/playout/frame"
)

type imageItem struct {
	img       *image.RGBA
	transform frame.Transform
}

// Mutable is a writable frame buffer handed out by CreateFrame for a
// producer to fill before wrapping it in a leaf.
type Mutable struct {
	Image  *image.RGBA
	Audio  []int32
	Tag    string
	Pixels frame.PixelFormat
}

// ImageMixer accumulates the image contributions of one tick's frames and
// composites them into a packed BGRA buffer. Visiting and finalizing happen
// on the mixer's queue; CreateFrame may be called from producer threads and
// guards its pool separately.
type ImageMixer struct {
	items      []imageItem
	background color.RGBA

	poolMu sync.Mutex
	pool   map[string]*image.RGBA
}

// NewImageMixer creates an accumulator compositing onto opaque black.
func NewImageMixer() *ImageMixer {
	return &ImageMixer{
		background: color.RGBA{A: 255},
		pool:       make(map[string]*image.RGBA),
	}
}

// SetBackground sets the color the output is flooded with before layers
// composite.
func (m *ImageMixer) SetBackground(c color.RGBA) {
	m.background = c
}

// VisitLeaf records one leaf's image contribution in visit order.
func (m *ImageMixer) VisitLeaf(leaf *frame.Draw, combined frame.Transform) {
	if leaf.Image == nil || combined.Opacity <= 0 {
		return
	}
	m.items = append(m.items, imageItem{img: leaf.Image, transform: combined})
}

// CreateFrame allocates a mutable frame buffer for the given plane layout,
// reusing the previous buffer handed to the same tag when the layout still
// matches.
func (m *ImageMixer) CreateFrame(tag string, desc frame.PixelFormat) *Mutable {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	rect := image.Rect(0, 0, desc.Width, desc.Height)
	img, ok := m.pool[tag]
	if !ok || !img.Bounds().Eq(rect) {
		img = image.NewRGBA(rect)
		m.pool[tag] = img
	}
	return &Mutable{Image: img, Tag: tag, Pixels: desc}
}

// composeContext carries the per-mix values the compositing math needs, in
// place of any process-wide state.
type composeContext struct {
	width, height int
	// Raster-per-square-pixel ratios derived from the format's square
	// dimensions; destination rects are computed in square-pixel space and
	// mapped back through these.
	rasterX float64
	rasterY float64
}

// Finalize composites everything visited since the last call against the
// format and returns the packed BGRA buffer.
func (m *ImageMixer) Finalize(format frame.Format) []byte {
	ctx := composeContext{
		width:   format.Width,
		height:  format.Height,
		rasterX: float64(format.Width) / float64(format.SquareWidth),
		rasterY: float64(format.Height) / float64(format.SquareHeight),
	}

	out := image.NewRGBA(image.Rect(0, 0, ctx.width, ctx.height))
	flood(out, m.background)

	for _, item := range m.items {
		m.compose(out, item, ctx, format)
	}
	m.items = m.items[:0]

	return packBGRA(out)
}

func (m *ImageMixer) compose(out *image.RGBA, item imageItem, ctx composeContext, format frame.Format) {
	t := item.transform

	// Destination rect in square-pixel space, mapped back to the raster.
	sqW := float64(format.SquareWidth)
	sqH := float64(format.SquareHeight)
	dx := int(t.FillTranslationX * sqW * ctx.rasterX)
	dy := int(t.FillTranslationY * sqH * ctx.rasterY)
	dw := int(t.FillScaleX * sqW * ctx.rasterX)
	dh := int(t.FillScaleY * sqH * ctx.rasterY)
	if dw <= 0 || dh <= 0 {
		return
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), item.img, item.img.Bounds(), xdraw.Src, nil)

	rect := image.Rect(dx, dy, dx+dw, dy+dh).Intersect(out.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		if limited, belongs := fieldRow(t.Field, y); limited && !belongs {
			continue
		}
		for x := rect.Min.X; x < rect.Max.X; x++ {
			src := scaled.RGBAAt(x-dx, y-dy)
			dst := out.RGBAAt(x, y)
			if t.IsKey {
				// A matte source only shapes the alpha already there.
				a := float64(src.A) / 255 * t.Opacity
				dst.A = uint8(float64(dst.A) * a)
				out.SetRGBA(x, y, dst)
				continue
			}
			a := float64(src.A) / 255 * t.Opacity
			dst.R = blend(src.R, dst.R, a)
			dst.G = blend(src.G, dst.G, a)
			dst.B = blend(src.B, dst.B, a)
			dst.A = blend(src.A, dst.A, a)
			out.SetRGBA(x, y, dst)
		}
	}
}

// fieldRow reports whether a contribution is field-limited at all, and
// whether row y belongs to its field.
func fieldRow(field frame.FieldMode, y int) (bool, bool) {
	switch field {
	case frame.Upper:
		return true, y%2 == 0
	case frame.Lower:
		return true, y%2 == 1
	default:
		return false, false
	}
}

func blend(src, dst uint8, a float64) uint8 {
	v := float64(src)*a + float64(dst)*(1-a)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

func flood(img *image.RGBA, c color.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}

func packBGRA(img *image.RGBA) []byte {
	out := make([]byte, len(img.Pix))
	for i := 0; i < len(img.Pix); i += 4 {
		out[i] = img.Pix[i+2]
		out[i+1] = img.Pix[i+1]
		out[i+2] = img.Pix[i]
		out[i+3] = img.Pix[i+3]
	}
	return out
}
