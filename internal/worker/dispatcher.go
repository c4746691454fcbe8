package worker

import "context"

// Dispatcher schedules callbacks onto the caller's goroutine. The worker
// never invokes a callback directly.
type Dispatcher interface {
	Dispatch(fn func())
}

// LoopDispatcher queues callbacks until the owning goroutine runs them with
// Next, Drain or Run.
type LoopDispatcher struct {
	pending *queue[func()]
}

func NewLoopDispatcher() *LoopDispatcher {
	return &LoopDispatcher{pending: newQueue[func()]()}
}

func (d *LoopDispatcher) Dispatch(fn func()) {
	if fn != nil {
		d.pending.push(fn)
	}
}

// Next runs the oldest callback, waiting for one until ctx is done.
func (d *LoopDispatcher) Next(ctx context.Context) bool {
	fn, ok := d.pending.pop(ctx)
	if !ok {
		return false
	}
	fn()
	return true
}

// Drain runs every queued callback without waiting and returns how many ran.
func (d *LoopDispatcher) Drain() int {
	n := 0
	for {
		fn, ok := d.pending.tryPop()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Run executes callbacks until ctx is done.
func (d *LoopDispatcher) Run(ctx context.Context) error {
	for d.Next(ctx) {
	}
	return ctx.Err()
}

// Pending returns the number of callbacks waiting to run.
func (d *LoopDispatcher) Pending() int {
	return d.pending.len()
}
