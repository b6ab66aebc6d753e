package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// pollInterval is the granularity at which sleeps observe stop and pause.
const pollInterval = 100 * time.Millisecond

// Control is the stop/pause token handed down from the coordinator through
// every orchestrator, runner and executor. Stop is terminal; pause is a
// cooperative flag polled at suspension points and never interrupts an
// in-flight action.
type Control struct {
	ctx    context.Context
	cancel context.CancelFunc
	paused atomic.Bool
}

func NewControl(parent context.Context) *Control {
	ctx, cancel := context.WithCancel(parent)
	return &Control{ctx: ctx, cancel: cancel}
}

// Context returns the context that ends when Stop is called.
func (c *Control) Context() context.Context {
	return c.ctx
}

func (c *Control) Stop() {
	c.cancel()
}

func (c *Control) Stopped() bool {
	return c.ctx.Err() != nil
}

func (c *Control) Pause() {
	c.paused.Store(true)
}

func (c *Control) Resume() {
	c.paused.Store(false)
}

func (c *Control) Paused() bool {
	return c.paused.Load()
}

// Sleep waits for d, observing stop and pause in pollInterval slices. It
// returns false when interrupted by stop; time spent paused does not count
// against d.
func (c *Control) Sleep(d time.Duration) bool {
	remaining := d
	for remaining > 0 {
		if !c.WaitIfPaused() {
			return false
		}
		step := pollInterval
		if remaining < step {
			step = remaining
		}
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(step):
		}
		remaining -= step
	}
	return true
}

// WaitIfPaused blocks while the run is paused. It returns false when the run
// was stopped while (or before) waiting.
func (c *Control) WaitIfPaused() bool {
	for c.paused.Load() {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
	return !c.Stopped()
}
