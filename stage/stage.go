// Package stage owns the layers of one output channel and their animated
// transforms, and produces one frame per layer per tick. All mutation and
// production runs on the stage's own serialized queue; control operations go
// on the high lane so queued production work never starves them.
package stage

import (
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tjscheier/playout/executor"
	"github.com/tjscheier/playout/frame"
)

// Vertical sub-pixel motion beyond this makes an interlaced layer comb, so
// the producer is asked to deinterlace.
const deinterlaceEpsilon = 1e-4

// TransformFunc computes a new target transform from a snapshot of the
// current one. It must be pure; it runs on the stage's queue.
type TransformFunc func(frame.Transform) frame.Transform

// TransformTuple is one entry of a batched transform change.
type TransformTuple struct {
	Index    int
	Fn       TransformFunc
	Duration uint
	Easing   string
}

// LayerReport is a snapshot of one layer's state.
type LayerReport struct {
	Index      int
	Status     string
	Foreground string
	Background string
	Transform  frame.Transform
}

// Stage owns {index -> layer} and {index -> tween} for one channel.
type Stage struct {
	exec       *executor.Executor
	layers     map[int]*Layer
	transforms map[int]*frame.Tween
	log        *log.Entry
}

// New creates an empty stage running its own queue.
func New(name string) *Stage {
	return &Stage{
		exec:       executor.New(name),
		layers:     make(map[int]*Layer),
		transforms: make(map[int]*frame.Tween),
		log:        log.WithField("prefix", name),
	}
}

// Close stops the stage's queue.
func (s *Stage) Close() {
	s.exec.Close()
}

// Load installs a producer into layer index's background slot, creating the
// layer if needed.
func (s *Stage) Load(index int, p Producer, preview bool, autoPlayDelta int) {
	s.exec.Begin(executor.High, func() {
		s.layer(index).Load(p, preview, autoPlayDelta)
	})
}

// Play starts layer index.
func (s *Stage) Play(index int) {
	s.exec.Begin(executor.High, func() {
		s.layer(index).Play()
	})
}

// Pause freezes layer index on its current frame.
func (s *Stage) Pause(index int) {
	s.exec.Begin(executor.High, func() {
		s.layer(index).Pause()
	})
}

// Stop stops layer index.
func (s *Stage) Stop(index int) {
	s.exec.Begin(executor.High, func() {
		s.layer(index).Stop()
	})
}

// Clear removes layer index entirely, its transform included.
func (s *Stage) Clear(index int) {
	s.exec.Begin(executor.High, func() {
		delete(s.layers, index)
		delete(s.transforms, index)
	})
}

// ClearAll removes every layer and every transform.
func (s *Stage) ClearAll() {
	s.exec.Begin(executor.High, func() {
		s.layers = make(map[int]*Layer)
		s.transforms = make(map[int]*frame.Tween)
	})
}

// ApplyTransform replaces layer index's tween with one animating from the
// current snapshot to fn(snapshot) over duration ticks. A zero duration
// takes effect on the next tick.
func (s *Stage) ApplyTransform(index int, fn TransformFunc, duration uint, easing string) {
	s.exec.Begin(executor.High, func() {
		s.applyTransform(TransformTuple{Index: index, Fn: fn, Duration: duration, Easing: easing})
	})
}

// ApplyTransforms applies a batch of transform changes within one queued
// task, so every listed layer updates on the same tick boundary.
func (s *Stage) ApplyTransforms(batch []TransformTuple) {
	s.exec.Begin(executor.High, func() {
		for _, t := range batch {
			s.applyTransform(t)
		}
	})
}

func (s *Stage) applyTransform(t TransformTuple) {
	src := frame.IdentityTransform()
	if tw, ok := s.transforms[t.Index]; ok {
		src = tw.Fetch()
	}
	dst := t.Fn(src)
	s.transforms[t.Index] = frame.NewTween(src, dst, t.Duration, frame.EasingByName(t.Easing))
}

// ClearTransform resets layer index's transform to identity, discarding any
// in-flight animation.
func (s *Stage) ClearTransform(index int) {
	s.exec.Begin(executor.High, func() {
		delete(s.transforms, index)
	})
}

// ClearTransforms resets every layer's transform to identity.
func (s *Stage) ClearTransforms() {
	s.exec.Begin(executor.High, func() {
		s.transforms = make(map[int]*frame.Tween)
	})
}

// SwapLayers exchanges the whole layer set with another stage.
//
// The initiating stage queues a task on itself which then blocks on a task
// on the other stage, so the swap is observed atomically by both. This is
// deadlock-free only as long as no stage synchronously waits on a stage that
// could be waiting on it; the outer submission here never blocks.
func (s *Stage) SwapLayers(other *Stage) {
	if other == s {
		return
	}
	s.exec.Begin(executor.High, func() {
		other.exec.Invoke(executor.High, func() {
			s.layers, other.layers = other.layers, s.layers
		})
	})
}

// SwapLayer exchanges two layers within this stage.
func (s *Stage) SwapLayer(index, otherIndex int) {
	s.exec.Begin(executor.High, func() {
		swapEntry(s.layers, index, s.layers, otherIndex)
	})
}

// SwapLayerWith exchanges layer index with otherIndex on another stage. With
// other == s it degenerates to the within-stage swap.
func (s *Stage) SwapLayerWith(index, otherIndex int, other *Stage) {
	if other == s {
		s.SwapLayer(index, otherIndex)
		return
	}
	s.exec.Begin(executor.High, func() {
		other.exec.Invoke(executor.High, func() {
			swapEntry(s.layers, index, other.layers, otherIndex)
		})
	})
}

func swapEntry(a map[int]*Layer, i int, b map[int]*Layer, j int) {
	la, oka := a[i]
	lb, okb := b[j]
	if okb {
		a[i] = lb
	} else {
		delete(a, i)
	}
	if oka {
		b[j] = la
	} else {
		delete(b, j)
	}
}

// Foreground returns a future for layer index's active producer. The future
// resolves to nil when the layer does not exist.
func (s *Stage) Foreground(index int) *executor.Future[Producer] {
	return executor.Submit(s.exec, executor.High, func() Producer {
		if l, ok := s.layers[index]; ok {
			return l.Foreground()
		}
		return nil
	})
}

// Background returns a future for layer index's queued producer.
func (s *Stage) Background(index int) *executor.Future[Producer] {
	return executor.Submit(s.exec, executor.High, func() Producer {
		if l, ok := s.layers[index]; ok {
			return l.Background()
		}
		return nil
	})
}

// Info returns a snapshot report of every layer, ordered by index.
func (s *Stage) Info() []LayerReport {
	return executor.Submit(s.exec, executor.High, func() []LayerReport {
		indices := s.sortedIndices()
		reports := make([]LayerReport, 0, len(indices))
		for _, i := range indices {
			reports = append(reports, s.report(i))
		}
		return reports
	}).Get()
}

// LayerInfo returns a snapshot report of one layer. It does not materialize
// missing layers.
func (s *Stage) LayerInfo(index int) (LayerReport, bool) {
	type result struct {
		report LayerReport
		ok     bool
	}
	r := executor.Submit(s.exec, executor.High, func() result {
		if _, ok := s.layers[index]; !ok {
			return result{}
		}
		return result{report: s.report(index), ok: true}
	}).Get()
	return r.report, r.ok
}

func (s *Stage) report(index int) LayerReport {
	l := s.layers[index]
	r := LayerReport{Index: index, Status: l.Status(), Transform: frame.IdentityTransform()}
	if p := l.Foreground(); p != nil {
		r.Foreground = p.Name()
	}
	if p := l.Background(); p != nil {
		r.Background = p.Name()
	}
	if tw, ok := s.transforms[index]; ok {
		r.Transform = tw.Fetch()
	}
	return r
}

// Produce runs one production tick and blocks until the tick's frames are
// ready. Layers are produced in parallel; each parallel unit only touches
// its own layer, its own tween and its own result slot.
//
// Any failure during the tick drops all layers and transforms and yields an
// empty map: an empty picture beats repeating a poisoned state at broadcast
// cadence. Callers must tolerate missing indices.
func (s *Stage) Produce(format frame.Format) map[int]*frame.Draw {
	var frames map[int]*frame.Draw
	s.exec.Invoke(executor.Normal, func() {
		frames = s.produceTick(format)
	})
	return frames
}

func (s *Stage) produceTick(format frame.Format) (frames map[int]*frame.Draw) {
	defer func() {
		if r := recover(); r != nil {
			s.dropAll(fmt.Errorf("%v", r))
			frames = make(map[int]*frame.Draw)
		}
	}()

	indices := s.sortedIndices()

	// Materialize missing tween entries before the parallel section; the
	// map must not be written concurrently.
	for _, i := range indices {
		if _, ok := s.transforms[i]; !ok {
			s.transforms[i] = frame.IdentityTween()
		}
	}

	results := make([]*frame.Draw, len(indices))
	var g errgroup.Group
	for slot, index := range indices {
		slot, index := slot, index
		layer := s.layers[index]
		tween := s.transforms[index]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("layer %d: %v", index, r)
				}
			}()

			snapshot := tween.FetchAndTick()

			flags := FlagNone
			if format.FieldMode != frame.Progressive {
				if math.Abs(snapshot.FillScaleY-1) > deinterlaceEpsilon ||
					math.Abs(snapshot.FillTranslationY) > deinterlaceEpsilon {
					flags |= FlagDeinterlace
				}
			}
			if snapshot.IsKey {
				flags |= FlagAlphaOnly
			}

			raw, err := layer.Receive(flags)
			if err != nil {
				return fmt.Errorf("layer %d: %w", index, err)
			}

			out := frame.WithTransform(raw, snapshot)
			if format.FieldMode != frame.Progressive {
				// The second field sees the tween one tick further on.
				second := frame.WithTransform(raw, tween.FetchAndTick())
				out = frame.Interlace(out, second, format.FieldMode)
			}
			results[slot] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.dropAll(err)
		return make(map[int]*frame.Draw)
	}

	frames = make(map[int]*frame.Draw, len(indices))
	for slot, index := range indices {
		if results[slot] == nil {
			frames[index] = frame.EmptyFrame()
		} else {
			frames[index] = results[slot]
		}
	}
	return frames
}

func (s *Stage) dropAll(err error) {
	s.layers = make(map[int]*Layer)
	s.transforms = make(map[int]*frame.Tween)
	s.log.WithError(err).Error("tick production failed, dropped all layers")
}

func (s *Stage) sortedIndices() []int {
	indices := make([]int, 0, len(s.layers))
	for i := range s.layers {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// layer returns layer index, creating it on first use. Write paths only.
func (s *Stage) layer(index int) *Layer {
	l, ok := s.layers[index]
	if !ok {
		l = NewLayer()
		s.layers[index] = l
	}
	return l
}
