package stage

import "github.com/tjscheier/playout/frame"

// Layer holds an active foreground producer and a queued background
// producer, with play/pause/stop state. A layer is owned exclusively by the
// stage that created it and is only ever touched from that stage's queue.
type Layer struct {
	foreground    Producer
	background    Producer
	paused        bool
	autoPlayDelta int
	lastFrame     *frame.Draw
}

// NewLayer creates an empty, stopped layer.
func NewLayer() *Layer {
	return &Layer{paused: true, autoPlayDelta: -1}
}

// Load queues a producer in the background slot. With preview the producer
// is promoted immediately and the layer left paused on its first frame. An
// autoPlayDelta >= 0 promotes the background automatically once the
// foreground reports that few frames remaining.
func (l *Layer) Load(p Producer, preview bool, autoPlayDelta int) {
	l.background = p
	l.autoPlayDelta = autoPlayDelta
	if preview {
		l.Play()
		l.paused = true
	}
}

// Play promotes the queued background, if any, and resumes output.
func (l *Layer) Play() {
	if l.background != nil {
		l.foreground = l.background
		l.background = nil
		l.lastFrame = nil
	}
	l.paused = false
}

// Pause freezes the layer on its last delivered frame.
func (l *Layer) Pause() {
	l.paused = true
}

// Stop drops the foreground and leaves the layer paused and empty. A queued
// background survives.
func (l *Layer) Stop() {
	l.foreground = nil
	l.lastFrame = nil
	l.paused = true
}

// Receive produces the layer's raw frame for one tick.
func (l *Layer) Receive(flags Flags) (*frame.Draw, error) {
	if l.foreground == nil {
		return frame.EmptyFrame(), nil
	}
	if l.paused {
		if l.lastFrame == nil {
			// A previewed layer shows its first frame while paused.
			f, err := l.foreground.Receive(flags)
			if err != nil {
				return nil, err
			}
			l.lastFrame = f
		}
		return l.lastFrame, nil
	}
	if l.autoPlayDelta >= 0 && l.background != nil {
		if b, ok := l.foreground.(Bounded); ok && b.FramesLeft() <= l.autoPlayDelta {
			l.Play()
		}
	}
	f, err := l.foreground.Receive(flags)
	if err != nil {
		return nil, err
	}
	l.lastFrame = f
	return f, nil
}

// Foreground returns the active producer, or nil.
func (l *Layer) Foreground() Producer {
	return l.foreground
}

// Background returns the queued producer, or nil.
func (l *Layer) Background() Producer {
	return l.background
}

// Status describes the layer's state for reporting.
func (l *Layer) Status() string {
	switch {
	case l.foreground == nil:
		return "empty"
	case l.paused:
		return "paused"
	default:
		return "playing"
	}
}
