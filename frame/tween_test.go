package frame

import (
	"math"
	"testing"
)

func TestTweenMonotonic(t *testing.T) {
	src := IdentityTransform()
	dst := IdentityTransform()
	dst.Opacity = 0
	tw := NewTween(src, dst, 10, EasingByName("linear"))

	prev := uint(0)
	for i := 0; i < 25; i++ {
		tw.FetchAndTick()
		if tw.Elapsed() < prev {
			t.Fatalf("elapsed went backwards: %d after %d", tw.Elapsed(), prev)
		}
		if tw.Elapsed() > tw.Duration() {
			t.Fatalf("elapsed %d exceeds duration %d", tw.Elapsed(), tw.Duration())
		}
		prev = tw.Elapsed()
	}

	got := tw.Fetch()
	if got.Opacity != dst.Opacity {
		t.Errorf("expected destination opacity %v after completion, got %v", dst.Opacity, got.Opacity)
	}
}

func TestTweenHoldsDestinationAfterCompletion(t *testing.T) {
	src := IdentityTransform()
	dst := IdentityTransform()
	dst.FillScaleX = 2
	tw := NewTween(src, dst, 3, EasingByName("easeinoutquad"))

	for i := 0; i < 3; i++ {
		tw.FetchAndTick()
	}
	for i := 0; i < 5; i++ {
		got := tw.FetchAndTick()
		if got.FillScaleX != 2 {
			t.Fatalf("tick %d: expected destination scale 2, got %v", i, got.FillScaleX)
		}
	}
}

func TestTweenZeroDurationIsInstant(t *testing.T) {
	src := IdentityTransform()
	dst := IdentityTransform()
	dst.FillTranslationX = 0.5
	tw := NewTween(src, dst, 0, nil)

	if got := tw.Fetch(); got.FillTranslationX != 0.5 {
		t.Errorf("expected instant destination, got %v", got.FillTranslationX)
	}
}

func TestTweenInterpolatesMidway(t *testing.T) {
	src := IdentityTransform()
	src.Opacity = 0
	dst := IdentityTransform()
	tw := NewTween(src, dst, 10, EasingByName("linear"))

	for i := 0; i < 5; i++ {
		tw.FetchAndTick()
	}
	got := tw.Fetch()
	if math.Abs(got.Opacity-0.5) > 1e-9 {
		t.Errorf("expected opacity 0.5 at midpoint, got %v", got.Opacity)
	}
}

func TestEasingByNameFallsBackToLinear(t *testing.T) {
	e := EasingByName("no-such-easing")
	if got := e(0.25); got != 0.25 {
		t.Errorf("expected linear fallback, got %v at 0.25", got)
	}
}

func TestIdentityTweenRestsOnIdentity(t *testing.T) {
	tw := IdentityTween()
	got := tw.FetchAndTick()
	want := IdentityTransform()
	if got != want {
		t.Errorf("expected identity transform, got %+v", got)
	}
}
