package deferred

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerClosed is returned by Enqueue, Submit, Drain, Tick,
	// RunToIdle, and Close after the scheduler has been closed.
	ErrSchedulerClosed = errors.New("deferred: scheduler is closed")

	// ErrDrainReentered is returned when Drain is called from within a
	// running drain, for example from inside a microtask.
	ErrDrainReentered = errors.New("deferred: drain called from within a drain")

	// ErrWrongGoroutine is returned when Drain or Tick is called from a
	// goroutine other than the one the scheduler was bound to by the first
	// drive.
	ErrWrongGoroutine = errors.New("deferred: drain called from a different goroutine than the scheduler is bound to")
)

// CycleError is the rejection reason used when a Deferred is resolved with
// itself, directly or through adoption.
type CycleError struct {
	// ID identifies the deferred that participated in the cycle.
	ID uint64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("deferred: resolution cycle detected for deferred #%d", e.ID)
}

// PanicError wraps a value recovered from a panicking reaction callback or
// thenable. It becomes the rejection reason of the downstream Deferred.
type PanicError struct {
	// Value is the recovered panic value.
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("deferred: panic in callback: %v", e.Value)
}

// Unwrap returns the panic value if it was an error, otherwise nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AggregateError is the rejection reason produced by Any when every input
// rejects. Errors is index-aligned with the inputs.
type AggregateError struct {
	Message string
	Errors  []error
}

func (e *AggregateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "deferred: all deferreds were rejected"
}

// Unwrap exposes the individual rejection reasons to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is reports whether target matches any of the aggregated errors.
func (e *AggregateError) Is(target error) bool {
	for _, err := range e.Errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValueError adapts a non-error rejection reason into an error so it can be
// carried inside an AggregateError.
type ValueError struct {
	// Value is the original rejection reason.
	Value Value
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%v", e.Value)
}
