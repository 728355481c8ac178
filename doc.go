// Package deferred implements settle-once deferred values with a cooperative
// microtask scheduler, in the style of promise/event-loop runtimes.
//
// A Deferred transitions exactly once from Pending to Fulfilled or Rejected.
// Continuations attached via Then, Catch, and Finally never run synchronously:
// they are appended to the owning Scheduler's microtask queue and executed when
// the host drives the scheduler via Drain, Tick, or RunToIdle. The microtask
// queue is drained to exhaustion, including work appended mid-drain, before any
// macrotask submitted via Submit is allowed to run.
//
// Settlement (resolve and reject) is safe from any goroutine. Draining is
// single-threaded: the first call to Drain or Tick binds the Scheduler to that
// goroutine, and subsequent drives from other goroutines return
// ErrWrongGoroutine.
//
// Rejections with no failure continuation attached are reported through the
// WithUnhandledRejection callback at the end of each drain; attaching a
// handler afterwards fires the WithRejectionHandled callback exactly once.
package deferred
