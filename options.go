package deferred

import "github.com/joeycumines/logiface"

// Option configures a Scheduler.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	log         *logiface.Logger[logiface.Event]
	onUnhandled RejectionHandler
	onHandled   RejectionHandler
}

func resolveOptions(opts []Option) *schedulerOptions {
	cfg := &schedulerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithLogger attaches a structured logger. A nil logger (the default)
// disables logging.
func WithLogger(log *logiface.Logger[logiface.Event]) Option {
	return func(cfg *schedulerOptions) {
		cfg.log = log
	}
}

// WithUnhandledRejection registers a callback fired once per rejection that
// reaches the end of a drain with no failure continuation attached. The
// callback runs on the draining goroutine.
func WithUnhandledRejection(fn RejectionHandler) Option {
	return func(cfg *schedulerOptions) {
		cfg.onUnhandled = fn
	}
}

// WithRejectionHandled registers a callback fired when a failure continuation
// is attached to a rejection previously reported as unhandled. The callback
// runs on the goroutine attaching the continuation.
func WithRejectionHandled(fn RejectionHandler) Option {
	return func(cfg *schedulerOptions) {
		cfg.onHandled = fn
	}
}
