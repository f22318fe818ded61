package store

import "log/slog"

// Policy selects how Dispatch treats a listener that panics.
type Policy int

const (
	// IsolateListeners recovers each failing listener, logs it and keeps
	// notifying the rest. Dispatch returns the collected failures.
	IsolateListeners Policy = iota

	// PropagateListeners stops the notification pass at the first failing
	// listener and returns its failure from Dispatch.
	PropagateListeners
)

// String returns the policy name used in logs and flags.
func (p Policy) String() string {
	switch p {
	case IsolateListeners:
		return "isolate"
	case PropagateListeners:
		return "propagate"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a policy name back to its Policy.
func ParsePolicy(name string) (Policy, bool) {
	switch name {
	case "isolate":
		return IsolateListeners, true
	case "propagate":
		return PropagateListeners, true
	default:
		return 0, false
	}
}

type options struct {
	logger *slog.Logger
	policy Policy
}

// Option configures a Store at construction.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithListenerPolicy sets the listener failure policy.
// Default: IsolateListeners.
func WithListenerPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}
