package deferred

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/petermattis/goid"
)

// Scheduler owns a microtask queue, a macrotask queue, and the
// unhandled-rejection registry for the Deferred values it creates.
//
// Producers (Enqueue, Submit, and settlement from reactions or foreign
// goroutines) may run anywhere. Draining is single-threaded: the first call
// to Drain or Tick binds the scheduler to the calling goroutine, and later
// drives from any other goroutine return ErrWrongGoroutine.
type Scheduler struct {
	log   *logiface.Logger[logiface.Event]
	track *tracker

	microtasks *thunkQueue
	macrotasks *thunkQueue
	mu         sync.Mutex

	nextID   atomic.Uint64
	gid      atomic.Int64
	draining atomic.Bool
	closed   atomic.Bool
}

// Resolvers bundles a Deferred with its settlement capabilities.
type Resolvers struct {
	Deferred *Deferred
	Resolve  ResolveFunc
	Reject   RejectFunc
}

// NewScheduler constructs a Scheduler. With no options it runs silently and
// drops unhandled-rejection reports.
func NewScheduler(opts ...Option) *Scheduler {
	cfg := resolveOptions(opts)
	s := &Scheduler{
		log:        cfg.log,
		microtasks: &thunkQueue{},
		macrotasks: &thunkQueue{},
	}
	s.track = newTracker(cfg.log, cfg.onUnhandled, cfg.onHandled)
	return s
}

func (s *Scheduler) newDeferred() *Deferred {
	// Zero state is Pending.
	return &Deferred{
		id: s.nextID.Add(1),
		s:  s,
	}
}

// New returns a pending Deferred along with its resolve and reject
// capabilities. Only the first capability invocation settles it.
func (s *Scheduler) New() (*Deferred, ResolveFunc, RejectFunc) {
	d := s.newDeferred()
	return d, d.resolve, d.reject
}

// WithResolvers is New packaged as a single value.
func (s *Scheduler) WithResolvers() *Resolvers {
	d, resolve, reject := s.New()
	return &Resolvers{Deferred: d, Resolve: resolve, Reject: reject}
}

// Resolved returns a Deferred resolved with v. If v is a thenable the result
// adopts it rather than fulfilling immediately.
func (s *Scheduler) Resolved(v Value) *Deferred {
	d := s.newDeferred()
	d.resolve(v)
	return d
}

// Rejected returns a Deferred rejected with reason.
func (s *Scheduler) Rejected(reason Value) *Deferred {
	d := s.newDeferred()
	d.reject(reason)
	return d
}

// Enqueue appends fn to the microtask queue. It never runs fn synchronously.
// Safe from any goroutine.
func (s *Scheduler) Enqueue(fn func()) error {
	if fn == nil {
		return nil
	}
	if s.closed.Load() {
		return ErrSchedulerClosed
	}
	s.mu.Lock()
	s.microtasks.Push(fn)
	s.mu.Unlock()
	return nil
}

// enqueueReaction is Enqueue for internally-generated reaction thunks; a
// post-close settlement drops the reaction rather than surfacing an error to
// the settler.
func (s *Scheduler) enqueueReaction(fn func()) {
	if err := s.Enqueue(fn); err != nil {
		s.log.Trace().
			Err(err).
			Log("reaction dropped")
	}
}

// Submit appends fn to the macrotask queue: the lower-priority source for
// externally-triggered work. Safe from any goroutine.
func (s *Scheduler) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	if s.closed.Load() {
		return ErrSchedulerClosed
	}
	s.mu.Lock()
	s.macrotasks.Push(fn)
	s.mu.Unlock()
	return nil
}

// bind pins the scheduler to the current goroutine on first drive.
func (s *Scheduler) bind() error {
	g := goid.Get()
	if s.gid.CompareAndSwap(0, g) {
		return nil
	}
	if s.gid.Load() != g {
		return ErrWrongGoroutine
	}
	return nil
}

// Drain runs microtasks from the head of the queue until it is empty,
// including thunks appended while draining, then runs the
// unhandled-rejection checkpoint.
func (s *Scheduler) Drain() error {
	if s.closed.Load() {
		return ErrSchedulerClosed
	}
	if err := s.bind(); err != nil {
		return err
	}
	if !s.draining.CompareAndSwap(false, true) {
		return ErrDrainReentered
	}
	defer s.draining.Store(false)

	n := 0
	for {
		s.mu.Lock()
		fn, ok := s.microtasks.Pop()
		s.mu.Unlock()
		if !ok {
			break
		}
		s.runThunk(fn)
		n++
	}

	if n > 0 {
		s.log.Trace().
			Int("thunks", n).
			Log("drain complete")
	}

	s.track.checkpoint()
	return nil
}

// runThunk isolates one thunk: a panic is logged and swallowed so the drain
// continues.
func (s *Scheduler) runThunk(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Err().
				Any("panic", r).
				Log("thunk panicked")
		}
	}()
	fn()
}

// Tick drains pending microtasks, then runs at most one macrotask followed by
// another full drain. It reports whether a macrotask ran. Queued microtasks
// always run before the next macrotask.
func (s *Scheduler) Tick() (bool, error) {
	if err := s.Drain(); err != nil {
		return false, err
	}

	s.mu.Lock()
	fn, ok := s.macrotasks.Pop()
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	s.runThunk(fn)
	return true, s.Drain()
}

// RunToIdle ticks until both queues are empty.
func (s *Scheduler) RunToIdle() error {
	for {
		ran, err := s.Tick()
		if err != nil {
			return err
		}
		if !ran && s.idle() {
			return nil
		}
	}
}

func (s *Scheduler) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.microtasks.Len() == 0 && s.macrotasks.Len() == 0
}

// Close shuts the scheduler down. Queued thunks are discarded, the rejection
// registry is dropped, and subsequent Enqueue/Submit/Drain/Tick calls return
// ErrSchedulerClosed. Close is not idempotent: the second call reports the
// scheduler already closed.
func (s *Scheduler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSchedulerClosed
	}

	s.mu.Lock()
	s.microtasks.Reset()
	s.macrotasks.Reset()
	s.mu.Unlock()

	s.track.discard()

	s.log.Debug().
		Log("scheduler closed")
	return nil
}
