package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/unistate/internal/canon"
	"github.com/roach88/unistate/internal/store"
	"github.com/roach88/unistate/internal/todo"
)

// ErrReentrant is returned when Recorder.Dispatch is called from inside
// another Recorder.Dispatch, typically by a listener. Such a call would be
// queued by the store and recorded against the wrong state.
var ErrReentrant = errors.New("journal: recorder dispatch is not re-entrant")

// ErrSessionExists is returned by NewRecorder for a session that already
// holds entries, or that began from a different state. Appending to it would
// record digests Verify can never reproduce.
var ErrSessionExists = errors.New("journal: session already recorded")

// Recorder dispatches actions to a store and appends each one to a journal
// session, together with the digest of the resulting state.
//
// A Recorder must be the only dispatcher of its store, and is meant to be
// driven from a single goroutine.
type Recorder struct {
	store    *todo.Store
	journal  *Journal
	session  string
	clock    *Clock
	logger   *slog.Logger
	inFlight bool
}

// NewRecorder begins session in j and returns a Recorder for s.
// The digest of s's current state is stored as the session's starting point.
//
// A session can be reopened only while it has no entries and its starting
// digest matches s; otherwise ErrSessionExists is returned.
func NewRecorder(ctx context.Context, s *todo.Store, j *Journal, session string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	digest, err := StateDigest(s.GetState())
	if err != nil {
		return nil, err
	}

	existing, err := j.ReadSession(ctx, session)
	switch {
	case errors.Is(err, ErrSessionNotFound):
	case err != nil:
		return nil, err
	default:
		last, err := j.LastSeq(ctx, session)
		if err != nil {
			return nil, err
		}
		if last > 0 || existing.InitialDigest != digest {
			return nil, fmt.Errorf("%w: %s", ErrSessionExists, session)
		}
	}

	if err := j.BeginSession(ctx, Session{ID: session, InitialDigest: digest}); err != nil {
		return nil, err
	}

	return &Recorder{
		store:   s,
		journal: j,
		session: session,
		clock:   NewClock(),
		logger:  logger,
	}, nil
}

// Session returns the session id this recorder writes to.
func (r *Recorder) Session() string {
	return r.session
}

// Dispatch dispatches a and records it.
//
// Actions the store rejects are not recorded. Listener failures do not stop
// the entry from being written: the transition happened. They are returned
// after the append.
func (r *Recorder) Dispatch(ctx context.Context, a todo.Action) error {
	if r.inFlight {
		return ErrReentrant
	}
	r.inFlight = true
	defer func() { r.inFlight = false }()

	env, err := todo.EncodeAction(a)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	payload, err := EnvelopeJSON(env)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	dispatchErr := r.store.Dispatch(a)
	if dispatchErr != nil && !store.IsListenerError(dispatchErr) {
		return dispatchErr
	}

	digest, err := StateDigest(r.store.GetState())
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	entry := Entry{
		Session:     r.session,
		Seq:         r.clock.Next(),
		Kind:        a.Kind(),
		Payload:     payload,
		StateDigest: digest,
	}
	if err := r.journal.Append(ctx, entry); err != nil {
		return err
	}

	r.logger.Debug("dispatch recorded",
		"session", entry.Session,
		"seq", entry.Seq,
		"kind", entry.Kind,
	)

	return dispatchErr
}

// StateDigest is the content digest of a todo state.
func StateDigest(s todo.State) (string, error) {
	return canon.Digest(canon.DomainState, todo.Snapshot(s))
}

// EnvelopeJSON returns the canonical JSON of an action envelope.
func EnvelopeJSON(e todo.Envelope) (string, error) {
	m := map[string]any{"type": string(e.Type)}
	if e.Todo != nil {
		m["todo"] = map[string]any{
			"id":       string(e.Todo.ID),
			"name":     e.Todo.Name,
			"complete": e.Todo.Complete,
		}
	}
	if e.Goal != nil {
		m["goal"] = map[string]any{
			"id":   string(e.Goal.ID),
			"name": e.Goal.Name,
		}
	}
	if e.ID != "" {
		m["id"] = string(e.ID)
	}

	data, err := canon.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeEntry turns a recorded payload back into an action.
func DecodeEntry(e Entry) (todo.Action, error) {
	var env todo.Envelope
	if err := json.Unmarshal([]byte(e.Payload), &env); err != nil {
		return nil, fmt.Errorf("decode entry %d: %w", e.Seq, err)
	}
	if env.Type != e.Kind {
		return nil, fmt.Errorf("decode entry %d: kind column %q does not match payload %q", e.Seq, e.Kind, env.Type)
	}
	a, err := todo.DecodeAction(env)
	if err != nil {
		return nil, fmt.Errorf("decode entry %d: %w", e.Seq, err)
	}
	return a, nil
}
