package deferred

// State is the settlement state of a Deferred.
//
// The zero value is Pending; a Deferred moves to Fulfilled or Rejected exactly
// once and never transitions again.
type State int32

const (
	// Pending means the Deferred has not settled.
	Pending State = iota
	// Fulfilled means the Deferred settled successfully with a value.
	Fulfilled
	// Rejected means the Deferred settled with a rejection reason.
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}
