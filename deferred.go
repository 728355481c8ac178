package deferred

import (
	"sync"
	"sync/atomic"
)

// Value is a fulfillment value or rejection reason.
type Value = any

// ResolveFunc fulfills the Deferred it was created with. Subsequent calls to
// either capability are no-ops.
type ResolveFunc func(Value)

// RejectFunc rejects the Deferred it was created with. Subsequent calls to
// either capability are no-ops.
type RejectFunc func(Value)

// Deferred is a settle-once value produced by a Scheduler.
//
// A Deferred starts Pending and transitions exactly once to Fulfilled or
// Rejected. Settlement may happen on any goroutine; reactions attached via
// Then, Catch, and Finally always run as microtasks on the scheduler's
// draining goroutine, never synchronously.
type Deferred struct {
	result Value
	s      *Scheduler

	// r0 is the embedded first reaction, avoiding a slice allocation for the
	// common single-continuation case. extra holds the overflow.
	r0    reaction
	extra []reaction

	channels []chan Value

	state   atomic.Int32
	mu      sync.Mutex
	id      uint64
	r0Used  bool
	handled bool
}

// reaction links a settled result to a downstream Deferred. A nil callback
// for the settled state passes the settlement through unchanged.
type reaction struct {
	onFulfilled func(Value) Value
	onRejected  func(Value) Value
	downstream  *Deferred
}

// State returns the current settlement state.
func (d *Deferred) State() State {
	return State(d.state.Load())
}

// Value returns the fulfillment value, or nil if the Deferred is not
// fulfilled.
func (d *Deferred) Value() Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State() != Fulfilled {
		return nil
	}
	return d.result
}

// Reason returns the rejection reason, or nil if the Deferred is not
// rejected.
func (d *Deferred) Reason() Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State() != Rejected {
		return nil
	}
	return d.result
}

// Then attaches continuations and returns a new Deferred settled by their
// outcome. Either callback may be nil, in which case the corresponding
// settlement passes through to the returned Deferred unchanged.
//
// Callbacks never run synchronously: even when d is already settled, the
// reaction is scheduled as a microtask. A callback's return value resolves
// the downstream (adopting thenables); a panic rejects it with PanicError.
func (d *Deferred) Then(onFulfilled, onRejected func(Value) Value) *Deferred {
	child := d.s.newDeferred()
	d.addReaction(reaction{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		downstream:  child,
	})
	if onRejected != nil {
		d.markHandled()
	}
	return child
}

// Catch attaches a rejection continuation. Equivalent to Then(nil, onRejected).
func (d *Deferred) Catch(onRejected func(Value) Value) *Deferred {
	return d.Then(nil, onRejected)
}

// Finally runs fn once d settles, regardless of outcome, and returns a
// Deferred that settles the same way as d. A panic in fn is discarded and
// the original settlement propagates.
func (d *Deferred) Finally(fn func()) *Deferred {
	child := d.s.newDeferred()
	settle := func(result Value, rejected bool) {
		func() {
			defer func() {
				// Cleanup hooks cannot alter the settlement.
				_ = recover()
			}()
			fn()
		}()
		if rejected {
			child.reject(result)
		} else {
			child.resolve(result)
		}
	}
	d.addReaction(reaction{
		onFulfilled: func(v Value) Value { settle(v, false); return nil },
		onRejected:  func(r Value) Value { settle(r, true); return nil },
		downstream:  nil,
	})
	d.markHandled()
	return child
}

// ToChannel returns a channel that receives the settlement result (value or
// reason) and is then closed. The channel is buffered, so nothing blocks if
// the caller walks away.
func (d *Deferred) ToChannel() <-chan Value {
	ch := make(chan Value, 1)
	d.mu.Lock()
	if d.State() != Pending {
		result := d.result
		d.mu.Unlock()
		ch <- result
		close(ch)
		return ch
	}
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	return ch
}

// resolve settles d with value, adopting thenables and detecting cycles.
// Callable from any goroutine.
func (d *Deferred) resolve(value Value) {
	if t, ok := value.(*Deferred); ok {
		if t == d {
			d.reject(&CycleError{ID: d.id})
			return
		}
		// Adopt the other Deferred's eventual state via a pass-through
		// reaction; no closures needed.
		t.addReaction(reaction{downstream: d})
		return
	}
	if t, ok := value.(Thenable); ok {
		d.adopt(t)
		return
	}
	d.settle(Fulfilled, value)
}

// reject settles d with reason. Callable from any goroutine.
func (d *Deferred) reject(reason Value) {
	d.settle(Rejected, reason)
}

// adopt defers settlement to a foreign thenable. The first callback the
// thenable invokes wins; a panic out of Then rejects d.
func (d *Deferred) adopt(t Thenable) {
	var won atomic.Bool
	defer func() {
		if r := recover(); r != nil {
			if won.CompareAndSwap(false, true) {
				d.reject(PanicError{Value: r})
			}
		}
	}()
	t.Then(
		func(v Value) {
			if won.CompareAndSwap(false, true) {
				d.resolve(v)
			}
		},
		func(r Value) {
			if won.CompareAndSwap(false, true) {
				d.reject(r)
			}
		},
	)
}

// settle performs the one-shot state transition, flushes queued reactions to
// the scheduler in attachment order, and notifies settlement channels.
func (d *Deferred) settle(state State, result Value) {
	d.mu.Lock()
	if d.State() != Pending {
		d.mu.Unlock()
		return
	}

	d.result = result
	d.state.Store(int32(state))

	r0Used := d.r0Used
	r0 := d.r0
	extra := d.extra
	channels := d.channels
	handled := d.handled
	d.r0 = reaction{}
	d.r0Used = false
	d.extra = nil
	d.channels = nil

	// Reactions are flushed under the lock so concurrent attachers cannot
	// interleave ahead of already-queued reactions.
	if r0Used {
		d.scheduleReaction(r0, state, result)
	}
	for _, r := range extra {
		d.scheduleReaction(r, state, result)
	}
	d.mu.Unlock()

	for _, ch := range channels {
		ch <- result
		close(ch)
	}

	if state == Rejected && !handled {
		d.s.track.observeRejection(d, result)
	}
}

// addReaction queues r to run when d settles, or schedules it immediately if
// d has already settled.
func (d *Deferred) addReaction(r reaction) {
	d.mu.Lock()
	if st := d.State(); st != Pending {
		result := d.result
		d.scheduleReaction(r, st, result)
		d.mu.Unlock()
		return
	}
	if !d.r0Used {
		d.r0 = r
		d.r0Used = true
	} else {
		d.extra = append(d.extra, r)
	}
	d.mu.Unlock()
}

func (d *Deferred) scheduleReaction(r reaction, state State, result Value) {
	d.s.enqueueReaction(func() {
		d.runReaction(r, state, result)
	})
}

// runReaction executes one reaction on the draining goroutine.
func (d *Deferred) runReaction(r reaction, state State, result Value) {
	var fn func(Value) Value
	if state == Fulfilled {
		fn = r.onFulfilled
	} else {
		fn = r.onRejected
	}

	if fn == nil {
		// Pass-through: propagate the settlement unchanged.
		if r.downstream != nil {
			if state == Fulfilled {
				r.downstream.resolve(result)
			} else {
				r.downstream.reject(result)
			}
		}
		return
	}

	defer func() {
		if p := recover(); p != nil {
			d.s.log.Err().
				Uint64("deferred", d.id).
				Any("panic", p).
				Log("reaction panicked")
			if r.downstream != nil {
				r.downstream.reject(PanicError{Value: p})
			}
		}
	}()

	out := fn(result)
	if r.downstream != nil {
		r.downstream.resolve(out)
	}
}

// markHandled records that a failure continuation exists, and if d was
// already rejected, withdraws it from the unhandled-rejection registry.
func (d *Deferred) markHandled() {
	d.mu.Lock()
	if d.handled {
		d.mu.Unlock()
		return
	}
	d.handled = true
	rejected := d.State() == Rejected
	d.mu.Unlock()

	if rejected {
		d.s.track.markHandled(d)
	}
}

func (d *Deferred) isHandled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handled
}
