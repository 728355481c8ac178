package deferred

// OutcomeStatus describes how one input of AllSettled settled.
type OutcomeStatus string

const (
	OutcomeFulfilled OutcomeStatus = "fulfilled"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// Outcome is one element of the slice AllSettled fulfills with. Value is set
// for fulfilled inputs, Reason for rejected ones.
type Outcome struct {
	Status OutcomeStatus
	Value  Value
	Reason Value
}

// Combinator bookkeeping below uses plain counters: reactions run
// sequentially on the draining goroutine, so no synchronization is needed.

// All returns a Deferred that fulfills with every input's value, index
// aligned, once all inputs fulfill, or rejects with the first rejection
// reason. Inputs are never cancelled; an empty input fulfills with an empty
// slice.
func (s *Scheduler) All(ds []*Deferred) *Deferred {
	out, resolve, reject := s.New()
	if len(ds) == 0 {
		resolve(make([]Value, 0))
		return out
	}

	values := make([]Value, len(ds))
	remaining := len(ds)
	rejected := false

	for i, d := range ds {
		i := i
		d.Then(
			func(v Value) Value {
				if rejected {
					return nil
				}
				values[i] = v
				remaining--
				if remaining == 0 {
					resolve(values)
				}
				return nil
			},
			func(r Value) Value {
				if !rejected {
					rejected = true
					reject(r)
				}
				return nil
			},
		)
	}
	return out
}

// Race returns a Deferred that settles the same way as the first input to
// settle. Simultaneous settlements are broken by input index. An empty input
// never settles: the first of nothing never arrives.
func (s *Scheduler) Race(ds []*Deferred) *Deferred {
	out, resolve, reject := s.New()

	settled := false
	for _, d := range ds {
		d.Then(
			func(v Value) Value {
				if !settled {
					settled = true
					resolve(v)
				}
				return nil
			},
			func(r Value) Value {
				if !settled {
					settled = true
					reject(r)
				}
				return nil
			},
		)
	}
	return out
}

// AllSettled returns a Deferred that always fulfills, with one Outcome per
// input in index order, once every input has settled. An empty input
// fulfills with an empty slice.
func (s *Scheduler) AllSettled(ds []*Deferred) *Deferred {
	out, resolve, _ := s.New()
	if len(ds) == 0 {
		resolve(make([]Outcome, 0))
		return out
	}

	outcomes := make([]Outcome, len(ds))
	remaining := len(ds)
	record := func(i int, o Outcome) {
		outcomes[i] = o
		remaining--
		if remaining == 0 {
			resolve(outcomes)
		}
	}

	for i, d := range ds {
		i := i
		d.Then(
			func(v Value) Value {
				record(i, Outcome{Status: OutcomeFulfilled, Value: v})
				return nil
			},
			func(r Value) Value {
				record(i, Outcome{Status: OutcomeRejected, Reason: r})
				return nil
			},
		)
	}
	return out
}

// Any returns a Deferred that fulfills with the first input to fulfill. If
// every input rejects, it rejects with an AggregateError whose Errors slice
// is index aligned with the inputs; non-error reasons are wrapped in
// ValueError. An empty input rejects immediately with an empty aggregate.
func (s *Scheduler) Any(ds []*Deferred) *Deferred {
	out, resolve, reject := s.New()
	if len(ds) == 0 {
		reject(&AggregateError{
			Message: "deferred: all deferreds were rejected",
			Errors:  make([]error, 0),
		})
		return out
	}

	reasons := make([]error, len(ds))
	remaining := len(ds)
	fulfilled := false

	for i, d := range ds {
		i := i
		d.Then(
			func(v Value) Value {
				if !fulfilled {
					fulfilled = true
					resolve(v)
				}
				return nil
			},
			func(r Value) Value {
				if err, ok := r.(error); ok {
					reasons[i] = err
				} else {
					reasons[i] = &ValueError{Value: r}
				}
				remaining--
				if remaining == 0 && !fulfilled {
					reject(&AggregateError{
						Message: "deferred: all deferreds were rejected",
						Errors:  reasons,
					})
				}
				return nil
			},
		)
	}
	return out
}
