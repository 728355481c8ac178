package deferred

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllPreservesInputOrder(t *testing.T) {
	s := NewScheduler()

	a, resolveA, _ := s.New()
	b, resolveB, _ := s.New()
	c, resolveC, _ := s.New()

	out := s.All([]*Deferred{a, b, c})

	// Settle out of order; values stay index aligned.
	resolveC("c")
	resolveA("a")
	resolveB("b")

	mustDrain(t, s)

	require.Equal(t, Fulfilled, out.State())
	require.Equal(t, []Value{"a", "b", "c"}, out.Value())
}

func TestAllEmptyInput(t *testing.T) {
	s := NewScheduler()
	out := s.All(nil)

	require.Equal(t, Fulfilled, out.State())
	require.Equal(t, []Value{}, out.Value())
}

func TestAllRejectsWithFirstRejection(t *testing.T) {
	s := NewScheduler()

	a, resolveA, _ := s.New()
	b, _, rejectB := s.New()
	c, _, rejectC := s.New()

	out := s.All([]*Deferred{a, b, c})
	out.Catch(func(Value) Value { return nil })

	boomB := errors.New("boom b")
	boomC := errors.New("boom c")
	rejectB(boomB)
	rejectC(boomC)
	resolveA("a")

	mustDrain(t, s)

	require.Equal(t, Rejected, out.State())
	require.Equal(t, boomB, out.Reason())

	// Inputs were not cancelled; they settled independently.
	require.Equal(t, Fulfilled, a.State())
	require.Equal(t, Rejected, c.State())
}

func TestRaceFirstSettlementWins(t *testing.T) {
	t.Run("fulfillment", func(t *testing.T) {
		s := NewScheduler()
		a, resolveA, _ := s.New()
		b, _, rejectB := s.New()
		out := s.Race([]*Deferred{a, b})

		resolveA("winner")
		rejectB(errors.New("loser"))
		mustDrain(t, s)

		require.Equal(t, Fulfilled, out.State())
		require.Equal(t, "winner", out.Value())
	})

	t.Run("rejection", func(t *testing.T) {
		s := NewScheduler()
		a, resolveA, _ := s.New()
		b, _, rejectB := s.New()
		out := s.Race([]*Deferred{a, b})
		out.Catch(func(Value) Value { return nil })

		boom := errors.New("boom")
		rejectB(boom)
		resolveA("late")
		mustDrain(t, s)

		require.Equal(t, Rejected, out.State())
		require.Equal(t, boom, out.Reason())
	})
}

func TestRaceTieBrokenByInputIndex(t *testing.T) {
	s := NewScheduler()

	// Both inputs are settled before any reaction runs; index order decides.
	a := s.Resolved("index-0")
	b := s.Resolved("index-1")
	out := s.Race([]*Deferred{a, b})

	mustDrain(t, s)

	require.Equal(t, Fulfilled, out.State())
	require.Equal(t, "index-0", out.Value())
}

func TestRaceEmptyInputNeverSettles(t *testing.T) {
	s := NewScheduler()
	out := s.Race(nil)

	require.NoError(t, s.RunToIdle())
	require.Equal(t, Pending, out.State())
}

func TestAllSettledRecordsEveryOutcome(t *testing.T) {
	s := NewScheduler()

	a, resolveA, _ := s.New()
	b, _, rejectB := s.New()

	out := s.AllSettled([]*Deferred{a, b})

	boom := errors.New("boom")
	rejectB(boom)
	resolveA("ok")

	mustDrain(t, s)

	require.Equal(t, Fulfilled, out.State())
	require.Equal(t, []Outcome{
		{Status: OutcomeFulfilled, Value: "ok"},
		{Status: OutcomeRejected, Reason: boom},
	}, out.Value())
}

func TestAllSettledEmptyInput(t *testing.T) {
	s := NewScheduler()
	out := s.AllSettled(nil)

	require.Equal(t, Fulfilled, out.State())
	require.Equal(t, []Outcome{}, out.Value())
}

func TestAnyFulfillsWithFirstFulfillment(t *testing.T) {
	s := NewScheduler()

	a, _, rejectA := s.New()
	b, resolveB, _ := s.New()
	c, resolveC, _ := s.New()

	out := s.Any([]*Deferred{a, b, c})

	rejectA(errors.New("boom"))
	resolveC("third")
	resolveB("second")

	mustDrain(t, s)

	require.Equal(t, Fulfilled, out.State())
	require.Equal(t, "third", out.Value())
}

func TestAnyAggregatesAllRejections(t *testing.T) {
	s := NewScheduler()

	a, _, rejectA := s.New()
	b, _, rejectB := s.New()

	out := s.Any([]*Deferred{a, b})
	out.Catch(func(Value) Value { return nil })

	boomA := errors.New("boom a")
	// Non-error reason: wrapped so the aggregate stays index aligned.
	rejectB("plain string")
	rejectA(boomA)

	mustDrain(t, s)

	require.Equal(t, Rejected, out.State())
	var agg *AggregateError
	require.ErrorAs(t, out.Reason().(error), &agg)
	require.Len(t, agg.Errors, 2)
	require.Equal(t, boomA, agg.Errors[0])

	var ve *ValueError
	require.ErrorAs(t, agg.Errors[1], &ve)
	require.Equal(t, "plain string", ve.Value)

	require.ErrorIs(t, agg, boomA)
}

func TestAnyEmptyInputRejectsImmediately(t *testing.T) {
	s := NewScheduler()
	out := s.Any(nil)
	out.Catch(func(Value) Value { return nil })

	require.Equal(t, Rejected, out.State())
	var agg *AggregateError
	require.ErrorAs(t, out.Reason().(error), &agg)
	require.Empty(t, agg.Errors)
	mustDrain(t, s)
}
