package deferred

// Thenable is the adoption protocol recognized by resolve. Resolving a
// Deferred with a value implementing Thenable defers settlement to whichever
// of the two callbacks the thenable invokes first; later invocations of
// either callback are ignored.
//
// *Deferred is adopted through a cheaper internal path and does not implement
// this interface.
type Thenable interface {
	Then(onFulfilled func(Value), onRejected func(Value))
}
