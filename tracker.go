package deferred

import (
	"sync"

	"github.com/joeycumines/logiface"
)

// RejectionHandler observes an unhandled (or late-handled) rejection reason.
type RejectionHandler func(reason Value)

// tracker is the per-scheduler unhandled-rejection registry. Rejected
// deferreds with no failure continuation are registered at settlement and
// reported once at the end of the drain that left them unhandled. Attaching
// a failure continuation afterwards withdraws the entry and, if it had been
// reported, fires the handled callback exactly once.
type tracker struct {
	log         *logiface.Logger[logiface.Event]
	onUnhandled RejectionHandler
	onHandled   RejectionHandler

	mu      sync.Mutex
	entries map[uint64]*trackEntry
	order   []*trackEntry
}

type trackEntry struct {
	d        *Deferred
	reason   Value
	reported bool
	removed  bool
}

func newTracker(log *logiface.Logger[logiface.Event], onUnhandled, onHandled RejectionHandler) *tracker {
	return &tracker{
		log:         log,
		onUnhandled: onUnhandled,
		onHandled:   onHandled,
		entries:     make(map[uint64]*trackEntry),
	}
}

// observeRejection registers a rejection that settled without a failure
// continuation attached. Called from the settling goroutine.
func (t *tracker) observeRejection(d *Deferred, reason Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[d.id]; ok {
		return
	}
	e := &trackEntry{d: d, reason: reason}
	t.entries[d.id] = e
	t.order = append(t.order, e)
}

// markHandled withdraws a tracked deferred because a failure continuation
// was attached. If the entry was already reported as unhandled, the handled
// callback fires.
func (t *tracker) markHandled(d *Deferred) {
	t.mu.Lock()
	e, ok := t.entries[d.id]
	if ok {
		delete(t.entries, d.id)
		e.removed = true
	}
	t.mu.Unlock()

	if ok && e.reported {
		t.log.Debug().
			Uint64("deferred", d.id).
			Any("reason", e.reason).
			Log("rejection handled late")
		if t.onHandled != nil {
			t.onHandled(e.reason)
		}
	}
}

// checkpoint reports, exactly once each, every registered rejection that
// still lacks a failure continuation. Runs at the end of each drain, on the
// draining goroutine.
func (t *tracker) checkpoint() {
	var report []*trackEntry

	t.mu.Lock()
	kept := t.order[:0]
	for _, e := range t.order {
		if e.removed {
			continue
		}
		if !e.reported {
			// Re-check against the deferred: a handler may have been
			// attached on another goroutine while the rejection was still
			// being registered.
			if e.d.isHandled() {
				delete(t.entries, e.d.id)
				continue
			}
			e.reported = true
			report = append(report, e)
		}
		// Reported entries stay registered so a late handler can still
		// trigger the handled notification.
		kept = append(kept, e)
	}
	for i := len(kept); i < len(t.order); i++ {
		t.order[i] = nil
	}
	t.order = kept
	t.mu.Unlock()

	for _, e := range report {
		t.log.Warning().
			Uint64("deferred", e.d.id).
			Any("reason", e.reason).
			Log("unhandled rejection")
		if t.onUnhandled != nil {
			t.onUnhandled(e.reason)
		}
	}
}

// discard drops all registry state. Used at scheduler shutdown.
func (t *tracker) discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[uint64]*trackEntry)
	t.order = nil
}
