package journal

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/unistate/internal/store"
	"github.com/roach88/unistate/internal/todo"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRecorder(t *testing.T, j *Journal, session string) (*Recorder, *todo.Store) {
	t.Helper()
	s := todo.NewStore(store.WithLogger(quietLogger()))
	r, err := NewRecorder(context.Background(), s, j, session, quietLogger())
	require.NoError(t, err)
	return r, s
}

func walkThrough() []todo.Action {
	return []todo.Action{
		todo.AddTodoAction(todo.Todo{ID: "0", Name: "Walk the dog"}),
		todo.AddTodoAction(todo.Todo{ID: "1", Name: "Wash the car"}),
		todo.ToggleTodoAction("1"),
		todo.RemoveTodoAction("0"),
		todo.AddGoalAction(todo.Goal{ID: "0", Name: "Lose 10 kilograms."}),
		todo.RemoveGoalAction("0"),
		todo.ToggleTodoAction("999"),
	}
}

func TestRecorder_RecordsEveryDispatch(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	r, s := newRecorder(t, j, "walk")

	for _, a := range walkThrough() {
		require.NoError(t, r.Dispatch(ctx, a))
	}

	entries, err := j.Entries(ctx, "walk")
	require.NoError(t, err)
	require.Len(t, entries, len(walkThrough()))
	assert.Equal(t, todo.KindAddTodo, entries[0].Kind)
	assert.Equal(t, `{"todo":{"complete":false,"id":"0","name":"Walk the dog"},"type":"ADD_TODO"}`, entries[0].Payload)
	assert.Equal(t, `{"id":"1","type":"TOGGLE_TODO"}`, entries[2].Payload)

	final, err := StateDigest(s.GetState())
	require.NoError(t, err)
	assert.Equal(t, final, entries[len(entries)-1].StateDigest)
}

func TestRecorder_RejectedActionNotRecorded(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	r, _ := newRecorder(t, j, "s")

	err := r.Dispatch(ctx, todo.RemoveTodoAction(""))
	assert.True(t, store.IsMalformed(err))

	entries, err := j.Entries(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecorder_InitNotRecordable(t *testing.T) {
	j := createTestJournal(t)
	r, _ := newRecorder(t, j, "s")

	err := r.Dispatch(context.Background(), todo.Init{})
	assert.ErrorIs(t, err, todo.ErrUnknownKind)
}

func TestRecorder_ListenerFailureStillRecorded(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	r, s := newRecorder(t, j, "s")
	s.Subscribe(func() { panic("render failed") })

	err := r.Dispatch(ctx, todo.AddGoalAction(todo.Goal{ID: "g", Name: "G"}))
	assert.True(t, store.IsListenerError(err))

	entries, err := j.Entries(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecorder_Reentrant(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	r, s := newRecorder(t, j, "s")

	var nested error
	s.Subscribe(func() {
		if nested == nil {
			nested = r.Dispatch(ctx, todo.RemoveTodoAction("t"))
		}
	})

	require.NoError(t, r.Dispatch(ctx, todo.AddTodoAction(todo.Todo{ID: "t", Name: "T"})))
	assert.ErrorIs(t, nested, ErrReentrant)
	assert.Len(t, s.GetState().Todos, 1)
}

func TestRecorder_RejectsRecordedSession(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	r1, _ := newRecorder(t, j, "s")
	require.NoError(t, r1.Dispatch(ctx, todo.AddGoalAction(todo.Goal{ID: "a", Name: "A"})))

	_, err := NewRecorder(ctx, todo.NewStore(store.WithLogger(quietLogger())), j, "s", quietLogger())
	assert.ErrorIs(t, err, ErrSessionExists)

	// The refused second recorder must leave the session verifiable.
	v, err := Verify(ctx, j, "s")
	require.NoError(t, err)
	assert.True(t, v.Deterministic)
	assert.Equal(t, 1, v.Entries)
}

func TestRecorder_RejectsDifferentStartingState(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	newRecorder(t, j, "s")

	s := todo.NewStore(store.WithLogger(quietLogger()))
	require.NoError(t, s.Dispatch(todo.AddGoalAction(todo.Goal{ID: "a", Name: "A"})))

	_, err := NewRecorder(ctx, s, j, "s", quietLogger())
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestRecorder_ReopensEmptySession(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	newRecorder(t, j, "s")

	r2, _ := newRecorder(t, j, "s")
	assert.Equal(t, "s", r2.Session())
	require.NoError(t, r2.Dispatch(ctx, todo.AddGoalAction(todo.Goal{ID: "b", Name: "B"})))

	entries, err := j.Entries(ctx, "s")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Seq)

	v, err := Verify(ctx, j, "s")
	require.NoError(t, err)
	assert.True(t, v.Deterministic)
}

func TestDecodeEntry_KindMismatch(t *testing.T) {
	_, err := DecodeEntry(Entry{Seq: 1, Kind: todo.KindAddGoal, Payload: `{"id":"1","type":"REMOVE_GOAL"}`})
	assert.Error(t, err)

	_, err = DecodeEntry(Entry{Seq: 1, Kind: todo.KindAddGoal, Payload: `not json`})
	assert.Error(t, err)
}
