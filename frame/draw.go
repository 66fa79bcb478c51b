package frame

import "image"

// Kind identifies the variant of a frame-graph node.
type Kind int

const (
	// Empty is the sentinel node that contributes nothing.
	Empty Kind = iota

	// Leaf carries raw image and audio content from a producer.
	Leaf

	// Group composes child nodes under a shared transform.
	Group
)

// Draw is one node of the per-tick frame graph. Producers hand the stage
// Leaf nodes, the stage wraps them in Groups carrying tween snapshots, and
// the mixer folds the whole tree into one output frame.
type Draw struct {
	Kind      Kind
	Transform Transform
	Image     *image.RGBA
	Audio     []int32
	Tag       string
	Children  []*Draw
}

// EmptyFrame returns the sentinel node that contributes nothing.
func EmptyFrame() *Draw {
	return &Draw{Kind: Empty, Transform: IdentityTransform()}
}

// NewLeaf creates a content node. The tag identifies the producer that made
// it, for frame-pool reuse in the image mixer.
func NewLeaf(img *image.RGBA, audio []int32, tag string) *Draw {
	return &Draw{Kind: Leaf, Transform: IdentityTransform(), Image: img, Audio: audio, Tag: tag}
}

// WithTransform wraps a frame in a group node carrying the given transform.
// The wrapped frame is shared, not copied.
func WithTransform(f *Draw, t Transform) *Draw {
	return &Draw{Kind: Group, Transform: t, Children: []*Draw{f}}
}

// Interlace weaves two frames into one field-accurate frame. The first frame
// lands on the first field of the given mode, the second on the other. A
// progressive mode returns the first frame unchanged.
func Interlace(a, b *Draw, mode FieldMode) *Draw {
	if mode == Progressive {
		return a
	}
	other := Upper
	if mode == Upper {
		other = Lower
	}
	first := &Draw{Kind: Group, Transform: IdentityTransform(), Children: []*Draw{a}}
	first.Transform.Field = mode
	second := &Draw{Kind: Group, Transform: IdentityTransform(), Children: []*Draw{b}}
	second.Transform.Field = other
	// Both fields usually share one raw frame; mute the second so its audio
	// is not folded twice.
	second.Transform.Volume = 0
	return &Draw{Kind: Group, Transform: IdentityTransform(), Children: []*Draw{first, second}}
}

// Visitor receives each leaf of a frame graph together with the transform
// accumulated from the root down to that leaf.
type Visitor interface {
	VisitLeaf(leaf *Draw, combined Transform)
}

// Walk traverses a frame graph depth-first, combining transforms on the way
// down and handing every leaf to the visitor.
func Walk(f *Draw, v Visitor) {
	walk(f, IdentityTransform(), v)
}

func walk(f *Draw, parent Transform, v Visitor) {
	if f == nil {
		return
	}
	combined := parent.Combine(f.Transform)
	switch f.Kind {
	case Leaf:
		v.VisitLeaf(f, combined)
	case Group:
		for _, c := range f.Children {
			walk(c, combined, v)
		}
	}
}
