// Package executor provides the serialized task queue that stage and mixer
// instances run on. Each Executor owns one goroutine draining two FIFO
// lanes; the high lane always drains first, and a task runs to completion
// before the next one starts. The queue is the only synchronization the
// owning component needs: state touched exclusively from its tasks needs no
// locks.
package executor

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Priority selects which lane a task is queued on.
type Priority int

const (
	Normal Priority = iota
	High
)

// Executor is a single-threaded, two-lane task queue.
type Executor struct {
	name   string
	mu     sync.Mutex
	cond   *sync.Cond
	high   []func()
	normal []func()
	closed bool
	done   chan struct{}
}

// New creates an executor and starts its run loop. The name shows up in log
// entries only.
func New(name string) *Executor {
	e := &Executor{name: name, done: make(chan struct{})}
	e.cond = sync.NewCond(&e.mu)
	go e.run()
	return e
}

func (e *Executor) enqueue(p Priority, task func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if p == High {
		e.high = append(e.high, task)
	} else {
		e.normal = append(e.normal, task)
	}
	e.cond.Signal()
	return true
}

// Begin queues a task without waiting for it. Tasks on the same lane run in
// submission order; high-lane tasks run before anything queued normal.
func (e *Executor) Begin(p Priority, task func()) {
	if !e.enqueue(p, task) {
		log.WithField("prefix", e.name).Debug("task dropped, executor closed")
	}
}

// Invoke queues a task and blocks until it has run. Invoking a closed
// executor returns immediately without running the task.
func (e *Executor) Invoke(p Priority, task func()) {
	done := make(chan struct{})
	if !e.enqueue(p, func() {
		defer close(done)
		task()
	}) {
		log.WithField("prefix", e.name).Debug("invoke dropped, executor closed")
		return
	}
	<-done
}

// Close drains the tasks already queued, stops the run loop and waits for
// it to exit. Draining means every Invoke caller and every pending Future
// blocked on queued work is released. Later submissions are dropped.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cond.Signal()
	e.mu.Unlock()
	<-e.done
}

func (e *Executor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for !e.closed && len(e.high) == 0 && len(e.normal) == 0 {
			e.cond.Wait()
		}
		if len(e.high) == 0 && len(e.normal) == 0 {
			e.mu.Unlock()
			return
		}
		var task func()
		if len(e.high) > 0 {
			task = e.high[0]
			e.high = e.high[1:]
		} else {
			task = e.normal[0]
			e.normal = e.normal[1:]
		}
		e.mu.Unlock()
		task()
	}
}

// Future holds the eventual result of a submitted task.
type Future[T any] struct {
	ch chan T
}

// Get blocks until the result is available. It can be called any number of
// times.
func (f *Future[T]) Get() T {
	v := <-f.ch
	f.ch <- v
	return v
}

// Submit queues a result-bearing task and returns a future for its value.
// A future submitted to a closed executor resolves to the zero value.
func Submit[T any](e *Executor, p Priority, fn func() T) *Future[T] {
	f := &Future[T]{ch: make(chan T, 1)}
	if !e.enqueue(p, func() { f.ch <- fn() }) {
		var zero T
		f.ch <- zero
	}
	return f
}
