package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/unistate/internal/ids"
	"github.com/roach88/unistate/internal/journal"
	"github.com/roach88/unistate/internal/store"
	"github.com/roach88/unistate/internal/todo"
)

// errListenerFailed is the panic value of "fail" listeners.
var errListenerFailed = errors.New("harness: listener failed")

// Result is the outcome of running a scenario.
type Result struct {
	Name             string
	Final            todo.State
	Steps            []StepResult
	Notifications    int // calls of "count" listeners
	ListenerFailures int // recovered listener panics across all steps
	Failures         []string
	Session          string // journal session, when recording
}

// Pass reports whether every expectation held.
func (r *Result) Pass() bool {
	return len(r.Failures) == 0
}

// StepResult records what one step did.
type StepResult struct {
	Index  int
	Kind   todo.Kind
	Action todo.Action // nil when the envelope was rejected before dispatch
	Err    error
	State  todo.State
}

type runConfig struct {
	ids     ids.Generator
	logger  *slog.Logger
	journal *journal.Journal
	session string
}

// RunOption configures Run.
type RunOption func(*runConfig)

// WithIDs sets the generator for adds without an id.
// Default: ids.NewSequence("id").
func WithIDs(g ids.Generator) RunOption {
	return func(c *runConfig) { c.ids = g }
}

// WithLogger sets the logger handed to the store. Default: slog.Default().
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithJournal records every dispatch in j under session.
func WithJournal(j *journal.Journal, session string) RunOption {
	return func(c *runConfig) {
		c.journal = j
		c.session = session
	}
}

// Run executes a scenario against a fresh store.
//
// Expectation failures are collected in the Result. An error is returned
// only when the run itself cannot proceed, such as a journal write failure.
func Run(ctx context.Context, s *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		ids:    ids.NewSequence("id"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	policy := store.IsolateListeners
	if s.Policy != "" {
		p, ok := store.ParsePolicy(s.Policy)
		if !ok {
			return nil, fmt.Errorf("run %s: unknown policy %q", s.Name, s.Policy)
		}
		policy = p
	}

	st := todo.NewStore(store.WithLogger(cfg.logger), store.WithListenerPolicy(policy))

	result := &Result{Name: s.Name}
	listeners := s.Listeners
	if len(listeners) == 0 {
		listeners = []string{ListenerCount}
	}
	for _, kind := range listeners {
		switch kind {
		case ListenerCount:
			st.Subscribe(func() { result.Notifications++ })
		case ListenerFail:
			st.Subscribe(func() { panic(errListenerFailed) })
		default:
			return nil, fmt.Errorf("run %s: unknown listener %q", s.Name, kind)
		}
	}

	dispatch := func(_ context.Context, a todo.Action) error { return st.Dispatch(a) }
	if cfg.journal != nil {
		rec, err := journal.NewRecorder(ctx, st, cfg.journal, cfg.session, cfg.logger)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", s.Name, err)
		}
		dispatch = rec.Dispatch
		result.Session = rec.Session()
	}

	for i, step := range s.Steps {
		sr := StepResult{Index: i + 1, Kind: step.Type}

		a, err := todo.DecodeAction(withIDs(step.Envelope, cfg.ids))
		if err != nil {
			sr.Err = fmt.Errorf("%w: %w", store.ErrMalformedAction, err)
		} else {
			sr.Action = a
			sr.Err = dispatch(ctx, a)
			if sr.Err != nil && !store.IsMalformed(sr.Err) && !store.IsListenerError(sr.Err) {
				return nil, fmt.Errorf("run %s: step %d: %w", s.Name, sr.Index, sr.Err)
			}
		}
		result.ListenerFailures += len(store.ListenerErrors(sr.Err))
		sr.State = st.GetState()
		result.Steps = append(result.Steps, sr)

		label := fmt.Sprintf("step %d (%s)", sr.Index, sr.Kind)
		result.Failures = append(result.Failures, checkError(label, step.Expect, sr.Err)...)
		if step.Expect != nil {
			result.Failures = append(result.Failures, checkState(label, *step.Expect, sr.State)...)
		}
	}

	result.Final = st.GetState()
	if s.Expect != nil {
		result.Failures = append(result.Failures, checkState("final", *s.Expect, result.Final)...)
	}
	return result, nil
}

// withIDs fills in missing entity ids on adds. The envelope's pointers are
// copied, never written through, so the scenario stays reusable.
func withIDs(e todo.Envelope, g ids.Generator) todo.Envelope {
	switch e.Type {
	case todo.KindAddTodo:
		if e.Todo != nil && e.Todo.ID == "" {
			t := *e.Todo
			t.ID = todo.ID(g.Next())
			e.Todo = &t
		}
	case todo.KindAddGoal:
		if e.Goal != nil && e.Goal.ID == "" {
			gl := *e.Goal
			gl.ID = todo.ID(g.Next())
			e.Goal = &gl
		}
	}
	return e
}
