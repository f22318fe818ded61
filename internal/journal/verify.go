package journal

import (
	"context"
	"fmt"

	"github.com/roach88/unistate/internal/todo"
)

// Mismatch describes the first point where a replay diverged.
type Mismatch struct {
	Seq      int64  // 0 means the initial state
	Recorded string // digest in the journal
	Replayed string // digest of the recomputed state
}

// Verification is the outcome of replaying one session.
type Verification struct {
	Session       string
	Entries       int
	Counts        map[todo.Kind]int
	Deterministic bool
	Mismatch      *Mismatch
	Final         todo.State
}

// Verify folds the session's recorded actions through todo.Reduce, starting
// from the default state, and compares every resulting digest with the
// recorded one. Stops at the first mismatch.
//
// Returns an error only when the journal cannot be read or an entry cannot
// be decoded; divergence is reported in the Verification.
func Verify(ctx context.Context, j *Journal, session string) (Verification, error) {
	header, err := j.ReadSession(ctx, session)
	if err != nil {
		return Verification{}, err
	}

	entries, err := j.Entries(ctx, session)
	if err != nil {
		return Verification{}, err
	}

	counts, err := j.CountByKind(ctx, session)
	if err != nil {
		return Verification{}, err
	}

	v := Verification{
		Session:       session,
		Entries:       len(entries),
		Counts:        counts,
		Deterministic: true,
	}

	state := todo.Reduce(todo.State{}, todo.Init{})
	digest, err := StateDigest(state)
	if err != nil {
		return Verification{}, err
	}
	if digest != header.InitialDigest {
		v.Deterministic = false
		v.Mismatch = &Mismatch{Seq: 0, Recorded: header.InitialDigest, Replayed: digest}
		v.Final = state
		return v, nil
	}

	for _, e := range entries {
		a, err := DecodeEntry(e)
		if err != nil {
			return Verification{}, fmt.Errorf("verify %s: %w", session, err)
		}

		state = todo.Reduce(state, a)
		digest, err := StateDigest(state)
		if err != nil {
			return Verification{}, err
		}
		if digest != e.StateDigest {
			v.Deterministic = false
			v.Mismatch = &Mismatch{Seq: e.Seq, Recorded: e.StateDigest, Replayed: digest}
			break
		}
	}

	v.Final = state
	return v, nil
}
