package frame

import (
	"strings"

	"github.com/fogleman/ease"
)

// Easing maps a normalised time in [0, 1] to an eased progress value.
type Easing func(t float64) float64

var easings = map[string]Easing{
	"linear":           ease.Linear,
	"easeinsine":       ease.InSine,
	"easeoutsine":      ease.OutSine,
	"easeinoutsine":    ease.InOutSine,
	"easeinquad":       ease.InQuad,
	"easeoutquad":      ease.OutQuad,
	"easeinoutquad":    ease.InOutQuad,
	"easeincubic":      ease.InCubic,
	"easeoutcubic":     ease.OutCubic,
	"easeinoutcubic":   ease.InOutCubic,
	"easeinquart":      ease.InQuart,
	"easeoutquart":     ease.OutQuart,
	"easeinoutquart":   ease.InOutQuart,
	"easeinexpo":       ease.InExpo,
	"easeoutexpo":      ease.OutExpo,
	"easeinoutexpo":    ease.InOutExpo,
	"easeincirc":       ease.InCirc,
	"easeoutcirc":      ease.OutCirc,
	"easeinoutcirc":    ease.InOutCirc,
	"easeinelastic":    ease.InElastic,
	"easeoutelastic":   ease.OutElastic,
	"easeinoutelastic": ease.InOutElastic,
	"easeinback":       ease.InBack,
	"easeoutback":      ease.OutBack,
	"easeinoutback":    ease.InOutBack,
	"easeinbounce":     ease.InBounce,
	"easeoutbounce":    ease.OutBounce,
	"easeinoutbounce":  ease.InOutBounce,
}

// EasingByName looks up an easing function by its case-insensitive name.
// Unknown names fall back to linear.
func EasingByName(name string) Easing {
	if e, ok := easings[strings.ToLower(name)]; ok {
		return e
	}
	return ease.Linear
}

// Tween animates a transform from a source to a destination value over a
// fixed number of ticks. The zero value is a completed tween resting on the
// identity transform.
type Tween struct {
	src      Transform
	dst      Transform
	duration uint
	elapsed  uint
	easing   Easing
}

// NewTween creates a tween from src to dst over duration ticks. A zero
// duration makes the change take effect on the next fetch.
func NewTween(src, dst Transform, duration uint, easing Easing) *Tween {
	if easing == nil {
		easing = ease.Linear
	}
	return &Tween{src: src, dst: dst, duration: duration, easing: easing}
}

// IdentityTween returns a completed tween resting on the identity transform.
func IdentityTween() *Tween {
	t := IdentityTransform()
	return NewTween(t, t, 0, nil)
}

// Fetch returns the interpolated transform at the current elapsed time
// without advancing it.
func (t *Tween) Fetch() Transform {
	if t.duration == 0 || t.elapsed >= t.duration {
		return t.dst
	}
	p := t.easing(float64(t.elapsed) / float64(t.duration))
	out := t.dst
	out.FillScaleX = lerp(t.src.FillScaleX, t.dst.FillScaleX, p)
	out.FillScaleY = lerp(t.src.FillScaleY, t.dst.FillScaleY, p)
	out.FillTranslationX = lerp(t.src.FillTranslationX, t.dst.FillTranslationX, p)
	out.FillTranslationY = lerp(t.src.FillTranslationY, t.dst.FillTranslationY, p)
	out.Opacity = lerp(t.src.Opacity, t.dst.Opacity, p)
	out.Volume = lerp(t.src.Volume, t.dst.Volume, p)
	return out
}

// FetchAndTick advances the tween by one tick, clamped at the duration, and
// returns the interpolated transform. Once complete it keeps returning the
// destination.
func (t *Tween) FetchAndTick() Transform {
	if t.elapsed < t.duration {
		t.elapsed++
	}
	return t.Fetch()
}

// Elapsed returns the number of ticks the tween has advanced.
func (t *Tween) Elapsed() uint {
	return t.elapsed
}

// Duration returns the total duration of the tween in ticks.
func (t *Tween) Duration() uint {
	return t.duration
}

func lerp(a, b, p float64) float64 {
	return a + (b-a)*p
}
