package stage

import (
	"errors"
	"math"
	"testing"

	"github.com/tjscheier/playout/frame"
)

var progressive = frame.Format{
	Name: "test-p", Width: 4, Height: 4, SquareWidth: 4, SquareHeight: 4,
	FPS: 25, FieldMode: frame.Progressive, SampleRate: 48000,
}

var interlaced = frame.Format{
	Name: "test-i", Width: 4, Height: 4, SquareWidth: 4, SquareHeight: 4,
	FPS: 25, FieldMode: frame.Upper, SampleRate: 48000,
}

func newTestStage(t *testing.T) *Stage {
	t.Helper()
	s := New("test-stage")
	t.Cleanup(s.Close)
	return s
}

func loadPlaying(t *testing.T, s *Stage, index int, p Producer) {
	t.Helper()
	s.Load(index, p, false, -1)
	s.Play(index)
}

func TestBatchTransformsApplyOnOneTick(t *testing.T) {
	s := newTestStage(t)
	loadPlaying(t, s, 1, &stubProducer{name: "a"})
	loadPlaying(t, s, 2, &stubProducer{name: "b"})

	setOpacity := func(v float64) TransformFunc {
		return func(tr frame.Transform) frame.Transform {
			tr.Opacity = v
			return tr
		}
	}
	s.ApplyTransforms([]TransformTuple{
		{Index: 1, Fn: setOpacity(0.75), Duration: 0, Easing: "linear"},
		{Index: 2, Fn: setOpacity(0.75), Duration: 0, Easing: "linear"},
	})

	frames := s.Produce(progressive)
	for _, index := range []int{1, 2} {
		f, ok := frames[index]
		if !ok {
			t.Fatalf("no frame for layer %d", index)
		}
		if f.Transform.Opacity != 0.75 {
			t.Errorf("layer %d: expected opacity 0.75 on the same tick, got %v", index, f.Transform.Opacity)
		}
	}
}

func TestClearTransformYieldsIdentity(t *testing.T) {
	s := newTestStage(t)
	loadPlaying(t, s, 1, &stubProducer{name: "a"})

	s.ApplyTransform(1, func(tr frame.Transform) frame.Transform {
		tr.Opacity = 0.1
		return tr
	}, 50, "easeoutcubic")
	s.ClearTransform(1)

	frames := s.Produce(progressive)
	if got := frames[1].Transform; got != frame.IdentityTransform() {
		t.Errorf("expected identity transform after clear, got %+v", got)
	}
}

func TestProduceKeysAreDeterministic(t *testing.T) {
	s := newTestStage(t)
	for _, index := range []int{7, 2, 9, 4} {
		loadPlaying(t, s, index, &stubProducer{name: "p"})
	}

	first := s.Produce(progressive)
	for i := 0; i < 10; i++ {
		again := s.Produce(progressive)
		if len(again) != len(first) {
			t.Fatalf("run %d: key count changed from %d to %d", i, len(first), len(again))
		}
		for k := range first {
			if _, ok := again[k]; !ok {
				t.Fatalf("run %d: key %d missing", i, k)
			}
		}
	}
}

func TestDeinterlaceFlagRespectsEpsilon(t *testing.T) {
	within := &stubProducer{name: "within"}
	outside := &stubProducer{name: "outside"}

	s := newTestStage(t)
	loadPlaying(t, s, 1, within)
	loadPlaying(t, s, 2, outside)

	scaleY := func(v float64) TransformFunc {
		return func(tr frame.Transform) frame.Transform {
			tr.FillScaleY = v
			return tr
		}
	}
	s.ApplyTransform(1, scaleY(1.00005), 0, "linear")
	s.ApplyTransform(2, scaleY(1.01), 0, "linear")

	s.Produce(interlaced)

	if within.flags[0]&FlagDeinterlace != 0 {
		t.Error("scale within epsilon must not flag deinterlace")
	}
	if outside.flags[0]&FlagDeinterlace == 0 {
		t.Error("scale outside epsilon must flag deinterlace")
	}
}

func TestVerticalTranslationFlagsDeinterlace(t *testing.T) {
	p := &stubProducer{name: "p"}
	s := newTestStage(t)
	loadPlaying(t, s, 1, p)

	s.ApplyTransform(1, func(tr frame.Transform) frame.Transform {
		tr.FillTranslationY = 0.25
		return tr
	}, 0, "linear")

	s.Produce(interlaced)
	if p.flags[0]&FlagDeinterlace == 0 {
		t.Error("vertical translation must flag deinterlace on interlaced formats")
	}
}

func TestKeyLayerFlagsAlphaOnly(t *testing.T) {
	p := &stubProducer{name: "key"}
	s := newTestStage(t)
	loadPlaying(t, s, 1, p)

	s.ApplyTransform(1, func(tr frame.Transform) frame.Transform {
		tr.IsKey = true
		return tr
	}, 0, "linear")

	s.Produce(progressive)
	if p.flags[0]&FlagAlphaOnly == 0 {
		t.Error("key layer must flag alpha-only")
	}
}

func TestProduceFaultFailsSafe(t *testing.T) {
	s := newTestStage(t)
	loadPlaying(t, s, 1, &stubProducer{name: "ok"})
	loadPlaying(t, s, 2, &stubProducer{name: "bad", fail: errors.New("decoder died")})

	frames := s.Produce(progressive)
	if len(frames) != 0 {
		t.Errorf("expected empty frame map after fault, got %d entries", len(frames))
	}
	if reports := s.Info(); len(reports) != 0 {
		t.Errorf("expected all layers dropped after fault, got %d", len(reports))
	}
}

func TestSwapLayerSymmetry(t *testing.T) {
	s := newTestStage(t)
	loadPlaying(t, s, 1, &stubProducer{name: "a"})
	loadPlaying(t, s, 2, &stubProducer{name: "b"})

	s.SwapLayer(1, 2)
	s.SwapLayer(1, 2)

	if got := s.Foreground(1).Get(); got == nil || got.Name() != "a" {
		t.Errorf("layer 1 should hold a after double swap, got %v", got)
	}
	if got := s.Foreground(2).Get(); got == nil || got.Name() != "b" {
		t.Errorf("layer 2 should hold b after double swap, got %v", got)
	}
}

func TestSwapLayersAcrossStages(t *testing.T) {
	s1 := newTestStage(t)
	s2 := newTestStage(t)
	loadPlaying(t, s1, 1, &stubProducer{name: "a"})
	loadPlaying(t, s2, 1, &stubProducer{name: "b"})

	s1.SwapLayers(s2)

	// The future resolves after the outer swap task, which itself waits on
	// the inner task on s2, so both sides are settled once it returns.
	if got := s1.Foreground(1).Get(); got == nil || got.Name() != "b" {
		t.Errorf("stage 1 layer 1 should hold b, got %v", got)
	}
	if got := s2.Foreground(1).Get(); got == nil || got.Name() != "a" {
		t.Errorf("stage 2 layer 1 should hold a, got %v", got)
	}
}

func TestForegroundOfMissingLayerIsNil(t *testing.T) {
	s := newTestStage(t)
	if got := s.Foreground(99).Get(); got != nil {
		t.Errorf("missing layer should report nil, got %v", got)
	}
	if _, ok := s.LayerInfo(99); ok {
		t.Error("missing layer must not materialize in reports")
	}
}

func TestInfoReportsLayers(t *testing.T) {
	s := newTestStage(t)
	loadPlaying(t, s, 5, &stubProducer{name: "content"})
	s.Load(9, &stubProducer{name: "queued"}, false, -1)

	reports := s.Info()
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Index != 5 || reports[1].Index != 9 {
		t.Errorf("reports should be ordered by index, got %d then %d", reports[0].Index, reports[1].Index)
	}
	if reports[0].Status != "playing" || reports[0].Foreground != "content" {
		t.Errorf("unexpected report for layer 5: %+v", reports[0])
	}
	if reports[1].Status != "empty" || reports[1].Background != "queued" {
		t.Errorf("unexpected report for layer 9: %+v", reports[1])
	}
}

func TestInterlacedProduceTicksTweenTwice(t *testing.T) {
	s := newTestStage(t)
	loadPlaying(t, s, 1, &stubProducer{name: "p"})

	s.ApplyTransform(1, func(tr frame.Transform) frame.Transform {
		tr.Opacity = 0
		return tr
	}, 10, "linear")

	s.Produce(interlaced)
	report, ok := s.LayerInfo(1)
	if !ok {
		t.Fatal("layer 1 should exist")
	}
	// Two field ticks per interlaced frame: 2/10 of the fade done.
	if got := report.Transform.Opacity; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected opacity 0.8 after one interlaced tick, got %v", got)
	}
}
