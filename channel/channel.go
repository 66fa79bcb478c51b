// Package channel drives one output channel: a stage and a mixer sequenced
// once per tick at the target format's frame rate, with composed frames
// fanned out to consumers.
package channel

import (
	"context"
	"image/color"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	log "github.com/sirupsen/logrus"

	"github.com/tjscheier/playout/frame"
	"github.com/tjscheier/playout/mixer"
	"github.com/tjscheier/playout/stage"
)

// A Consumer takes ownership of each composed frame the channel produces.
type Consumer interface {
	Send(frame.Const) error
}

// Channel sequences stage production and mixing per tick.
type Channel struct {
	stage  *stage.Stage
	mixer  *mixer.Mixer
	format frame.Format
	log    *log.Entry

	mu        sync.Mutex
	consumers []Consumer
}

// New creates a channel with its own stage and mixer for the given format.
func New(name string, format frame.Format) *Channel {
	return &Channel{
		stage:  stage.New(name + "-stage"),
		mixer:  mixer.New(name + "-mixer"),
		format: format,
		log:    log.WithField("prefix", name),
	}
}

// Stage returns the channel's stage.
func (c *Channel) Stage() *stage.Stage {
	return c.stage
}

// Mixer returns the channel's mixer.
func (c *Channel) Mixer() *mixer.Mixer {
	return c.mixer
}

// Format returns the channel's target format.
func (c *Channel) Format() frame.Format {
	return c.format
}

// SetBackground sets the compositing background from a hex color string.
func (c *Channel) SetBackground(hex string) error {
	col, err := colorful.Hex(hex)
	if err != nil {
		return err
	}
	r, g, b := col.Clamped().RGB255()
	c.mixer.SetBackground(color.RGBA{R: r, G: g, B: b, A: 255})
	return nil
}

// AddConsumer registers a consumer for composed frames.
func (c *Channel) AddConsumer(cons Consumer) {
	c.mu.Lock()
	c.consumers = append(c.consumers, cons)
	c.mu.Unlock()
}

// Tick runs one produce+mix sequence and fans the composed frame out. A
// consumer that errors is logged and detached.
func (c *Channel) Tick() frame.Const {
	frames := c.stage.Produce(c.format)
	out := c.mixer.Mix(frames, c.format)

	c.mu.Lock()
	consumers := c.consumers
	c.mu.Unlock()

	var failed []Consumer
	for _, cons := range consumers {
		if err := cons.Send(out); err != nil {
			c.log.WithError(err).Error("consumer failed, detaching")
			failed = append(failed, cons)
		}
	}
	if len(failed) > 0 {
		// Filter the live slice rather than writing back the snapshot, so a
		// consumer added during the sends is kept.
		c.mu.Lock()
		kept := c.consumers[:0]
		for _, cons := range c.consumers {
			if !containsConsumer(failed, cons) {
				kept = append(kept, cons)
			}
		}
		c.consumers = kept
		c.mu.Unlock()
	}
	return out
}

func containsConsumer(list []Consumer, c Consumer) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}

// Run ticks the channel at the format's frame rate until the context is
// cancelled.
func (c *Channel) Run(ctx context.Context) {
	ticker := time.NewTicker(c.format.Interval())
	defer ticker.Stop()
	c.log.WithField("format", c.format.Name).Info("channel running")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("channel stopped")
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Close stops the channel's stage and mixer queues.
func (c *Channel) Close() {
	c.stage.Close()
	c.mixer.Close()
}
