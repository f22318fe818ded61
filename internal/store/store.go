package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Reducer computes the next state from the previous state and an action.
//
// Reducers must be pure: the same inputs always give the same output, and
// prev is never mutated. Actions a reducer does not recognise return prev
// unchanged.
type Reducer[S, A any] func(prev S, action A) S

// Listener is notified after every state transition. It receives neither
// the action nor the state; call GetState for the latter.
type Listener func()

// Validator is implemented by actions that can check their own payload.
// Dispatch rejects an action whose Validate returns an error.
type Validator interface {
	Validate() error
}

// registration is one Subscribe call. The id is what makes registrations of
// the same function distinct.
type registration struct {
	id uint64
	fn Listener
}

// Store is a unidirectional state container.
//
// Thread-safety model:
//   - GetState, Subscribe and the returned unsubscribe: safe from any goroutine
//   - Dispatch: safe from any goroutine; reductions are serialized and
//     concurrent or re-entrant calls are queued (see package docs)
//
// INVARIANTS:
//   - state is only replaced by the dispatcher that holds the dispatching flag
//   - listeners keeps registration order
//   - a notification pass iterates a snapshot, never the live registry
type Store[S, A any] struct {
	reducer Reducer[S, A]
	logger  *slog.Logger
	policy  Policy

	stateMu sync.RWMutex
	state   S

	listenersMu sync.Mutex
	listeners   []registration
	nextID      uint64

	mu          sync.Mutex // guards dispatching and pending
	dispatching bool
	pending     *actionQueue[A]
}

// New creates a Store around reducer and materialises the initial state by
// reducing the zero state with the zero action.
//
// Panics with ErrNilReducer if reducer is nil.
func New[S, A any](reducer Reducer[S, A], opts ...Option) *Store[S, A] {
	var init A
	return NewWithInit(reducer, init, opts...)
}

// NewWithInit is New with an explicit init action, passed to the reducer
// together with the zero state.
//
// Panics with ErrNilReducer if reducer is nil.
func NewWithInit[S, A any](reducer Reducer[S, A], init A, opts ...Option) *Store[S, A] {
	if reducer == nil {
		panic(ErrNilReducer)
	}

	o := options{
		logger: slog.Default(),
		policy: IsolateListeners,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var zero S
	s := &Store[S, A]{
		reducer: reducer,
		logger:  o.logger,
		policy:  o.policy,
		pending: newActionQueue[A](),
	}
	s.state = reducer(zero, init)

	return s
}

// GetState returns the current state.
//
// The value is returned as is, not copied. Reducers never mutate state in
// place, so the returned value stays valid after later dispatches.
func (s *Store[S, A]) GetState() S {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Subscribe registers l to be called after every future dispatch.
//
// The returned function removes this registration only. Calling it again is
// a no-op. Panics with ErrNilListener if l is nil.
func (s *Store[S, A]) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		panic(ErrNilListener)
	}

	s.listenersMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, registration{id: id, fn: l})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

// remove drops the registration with the given id, keeping order.
func (s *Store[S, A]) remove(id uint64) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.listeners = slices.DeleteFunc(slices.Clone(s.listeners), func(r registration) bool {
		return r.id == id
	})
}

// Dispatch submits an action.
//
// Malformed actions are rejected with an error wrapping ErrMalformedAction
// and change nothing. Otherwise the reducer runs, the state is replaced and
// every listener is notified before Dispatch returns.
//
// A Dispatch made while another one is running is queued and returns nil;
// the running dispatcher applies it afterwards (see package docs). Callers
// on other goroutines that need the post-dispatch state must serialise their
// Dispatch calls themselves; a queued action is lost if the running reducer
// panics.
//
// The returned error, when not a rejection, joins the *ListenerError values
// of every listener that panicked, including those of drained queued actions.
func (s *Store[S, A]) Dispatch(action A) error {
	if err := validate(action); err != nil {
		return err
	}

	s.mu.Lock()
	if s.dispatching {
		s.pending.Enqueue(action)
		depth := s.pending.Len()
		s.mu.Unlock()
		s.logger.Debug("dispatch deferred",
			"action", actionName(action),
			"queued", depth,
		)
		return nil
	}
	s.dispatching = true
	s.mu.Unlock()

	// A panicking reducer leaves through here. Queued actions were
	// validated against a state that never came to be, so they are dropped.
	finished := false
	defer func() {
		if finished {
			return
		}
		s.mu.Lock()
		dropped := s.pending.Len()
		s.pending.Reset()
		s.dispatching = false
		s.mu.Unlock()
		s.logger.Error("reducer panicked",
			"action", actionName(action),
			"dropped", dropped,
		)
	}()

	var errs []error
	for {
		if err := s.reduceAndNotify(action); err != nil {
			errs = append(errs, err)
		}

		s.mu.Lock()
		next, ok := s.pending.TryDequeue()
		if !ok {
			s.dispatching = false
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
		action = next
	}
	finished = true

	return errors.Join(errs...)
}

// reduceAndNotify runs one full cycle for a single action.
// CRITICAL: called only by the goroutine holding the dispatching flag.
func (s *Store[S, A]) reduceAndNotify(action A) error {
	next := s.reducer(s.GetState(), action)

	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	snapshot := s.snapshot()

	s.logger.Debug("action reduced",
		"action", actionName(action),
		"listeners", len(snapshot),
	)

	return s.notify(snapshot)
}

// snapshot copies the registry for one notification pass.
func (s *Store[S, A]) snapshot() []registration {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	return slices.Clone(s.listeners)
}

// notify calls every registration in order, applying the listener policy.
func (s *Store[S, A]) notify(regs []registration) error {
	var failures []error
	for i, reg := range regs {
		err := call(reg)
		if err == nil {
			continue
		}

		if s.policy == PropagateListeners {
			s.logger.Error("listener failed, aborting notification",
				"registration", reg.id,
				"skipped", len(regs)-i-1,
				"error", err,
			)
			return err
		}

		s.logger.Error("listener failed",
			"registration", reg.id,
			"error", err,
		)
		failures = append(failures, err)
	}
	return errors.Join(failures...)
}

// call invokes a listener, converting a panic into a *ListenerError.
func call(reg registration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerError{Registration: reg.id, Value: r}
		}
	}()
	reg.fn()
	return nil
}

// validate rejects nil interface actions and actions whose own Validate fails.
func validate[A any](action A) error {
	v := any(action)
	if v == nil {
		return fmt.Errorf("%w: nil action", ErrMalformedAction)
	}
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedAction, err)
		}
	}
	return nil
}

// actionName labels an action in log records.
func actionName(action any) string {
	if s, ok := action.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", action)
}
