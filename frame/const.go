package frame

// PixelFormat describes the plane layout of a composed frame's image buffer.
// The mixer always emits packed BGRA, four bytes per pixel.
type PixelFormat struct {
	Width         int
	Height        int
	BytesPerPixel int
}

// Size returns the byte size of an image buffer with this layout.
func (p PixelFormat) Size() int {
	return p.Width * p.Height * p.BytesPerPixel
}

// Const is one composed output frame. It is immutable once returned;
// ownership passes to whoever consumes the channel's output.
type Const struct {
	Image  []byte
	Audio  []int32
	Pixels PixelFormat
	Format string
}

// EmptyConst returns the composed frame a mixer falls back to when a tick
// cannot be mixed.
func EmptyConst() Const {
	return Const{}
}

// IsEmpty reports whether the frame carries no content.
func (c Const) IsEmpty() bool {
	return len(c.Image) == 0 && len(c.Audio) == 0
}
