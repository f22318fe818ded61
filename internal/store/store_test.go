package store

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// op is a minimal action for exercising the container.
type op struct {
	kind string
	n    int
}

func (o op) Validate() error {
	if o.kind == "" {
		return errors.New("missing kind")
	}
	return nil
}

func (o op) String() string { return o.kind }

func counter(prev int, a op) int {
	switch a.kind {
	case "init":
		return 100
	case "add":
		return prev + a.n
	case "boom":
		panic("reducer exploded")
	default:
		return prev
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCounter(t *testing.T, opts ...Option) *Store[int, op] {
	t.Helper()
	return New(counter, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func TestNew_NilReducerPanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilReducer, func() {
		New[int, op](nil)
	})
}

func TestNew_DefaultStateFromZeroAction(t *testing.T) {
	s := newCounter(t)
	assert.Equal(t, 0, s.GetState())
}

func TestNewWithInit(t *testing.T) {
	s := NewWithInit(counter, op{kind: "init"}, WithLogger(quietLogger()))
	assert.Equal(t, 100, s.GetState())
}

func TestNewWithInit_NilReducerPanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrNilReducer, func() {
		NewWithInit[int](nil, op{kind: "init"})
	})
}

func TestDispatch_UpdatesState(t *testing.T) {
	s := newCounter(t)

	require.NoError(t, s.Dispatch(op{kind: "add", n: 2}))
	require.NoError(t, s.Dispatch(op{kind: "add", n: 3}))

	assert.Equal(t, 5, s.GetState())
}

func TestDispatch_UnknownKindIsPassthrough(t *testing.T) {
	s := newCounter(t)
	require.NoError(t, s.Dispatch(op{kind: "add", n: 7}))

	calls := 0
	s.Subscribe(func() { calls++ })

	require.NoError(t, s.Dispatch(op{kind: "unknown"}))
	assert.Equal(t, 7, s.GetState())
	assert.Equal(t, 1, calls, "listeners run even when the state is unchanged")
}

func TestDispatch_ReplayEqualsFold(t *testing.T) {
	actions := []op{
		{kind: "add", n: 1},
		{kind: "noop"},
		{kind: "add", n: -4},
		{kind: "add", n: 10},
	}

	s := NewWithInit(counter, op{kind: "init"}, WithLogger(quietLogger()))
	for _, a := range actions {
		require.NoError(t, s.Dispatch(a))
	}

	want := counter(0, op{kind: "init"})
	for _, a := range actions {
		want = counter(want, a)
	}
	assert.Equal(t, want, s.GetState())
}

func TestDispatch_RejectsMalformedAction(t *testing.T) {
	s := newCounter(t)
	calls := 0
	s.Subscribe(func() { calls++ })

	err := s.Dispatch(op{n: 5})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Equal(t, 0, s.GetState())
	assert.Equal(t, 0, calls)
}

func TestDispatch_RejectsNilInterfaceAction(t *testing.T) {
	s := New(func(prev int, a any) int { return prev + 1 }, WithLogger(quietLogger()))
	require.Equal(t, 1, s.GetState())

	err := s.Dispatch(nil)
	assert.ErrorIs(t, err, ErrMalformedAction)
	assert.Equal(t, 1, s.GetState())
}

func TestSubscribe_NilListenerPanics(t *testing.T) {
	s := newCounter(t)
	assert.PanicsWithValue(t, ErrNilListener, func() {
		s.Subscribe(nil)
	})
}

func TestSubscribe_NotifiedOncePerDispatch(t *testing.T) {
	s := newCounter(t)
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 1, calls)

	unsubscribe()
	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 1, calls, "unsubscribed listener must not run")
}

func TestSubscribe_UnsubscribeTwiceIsHarmless(t *testing.T) {
	s := newCounter(t)
	first, second := 0, 0
	unsubscribe := s.Subscribe(func() { first++ })
	s.Subscribe(func() { second++ })

	unsubscribe()
	assert.NotPanics(t, unsubscribe)

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second, "second unsubscribe must not remove other registrations")
	assert.Len(t, s.listeners, 1)
}

func TestSubscribe_SameListenerTwice(t *testing.T) {
	t.Run("unsubscribe one of two", func(t *testing.T) {
		s := newCounter(t)
		calls := 0
		l := func() { calls++ }

		unsubA := s.Subscribe(l)
		s.Subscribe(l)

		require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
		assert.Equal(t, 2, calls, "each registration is notified")

		unsubA()
		require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
		assert.Equal(t, 3, calls, "one registration remains")
	})

	t.Run("unsubscribe both", func(t *testing.T) {
		s := newCounter(t)
		calls := 0
		l := func() { calls++ }

		unsubA := s.Subscribe(l)
		unsubB := s.Subscribe(l)
		unsubA()
		unsubB()

		require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
		assert.Equal(t, 0, calls)
	})
}

func TestNotify_RegistrationOrder(t *testing.T) {
	s := newCounter(t)
	var order []string
	s.Subscribe(func() { order = append(order, "a") })
	s.Subscribe(func() { order = append(order, "b") })
	s.Subscribe(func() { order = append(order, "c") })

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestNotify_ListenersSeeNewState(t *testing.T) {
	s := newCounter(t)
	var seen []int
	s.Subscribe(func() { seen = append(seen, s.GetState()) })

	require.NoError(t, s.Dispatch(op{kind: "add", n: 2}))
	require.NoError(t, s.Dispatch(op{kind: "add", n: 3}))
	assert.Equal(t, []int{2, 5}, seen)
}

func TestNotify_SubscribeDuringPassWaitsForNextPass(t *testing.T) {
	s := newCounter(t)
	late := 0
	added := false
	s.Subscribe(func() {
		if !added {
			added = true
			s.Subscribe(func() { late++ })
		}
	})

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 0, late, "listener added mid-pass is not part of that pass")

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 1, late)
}

func TestNotify_UnsubscribeDuringPassKeepsSnapshot(t *testing.T) {
	s := newCounter(t)
	second := 0
	var unsubSecond func()
	s.Subscribe(func() { unsubSecond() })
	unsubSecond = s.Subscribe(func() { second++ })

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 1, second, "snapshot still includes the removed listener")

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 1, second)
}

func TestNotify_IsolateListeners(t *testing.T) {
	s := newCounter(t)
	after := 0
	s.Subscribe(func() { panic("listener exploded") })
	s.Subscribe(func() { after++ })

	err := s.Dispatch(op{kind: "add", n: 4})
	require.Error(t, err)
	assert.True(t, IsListenerError(err))
	assert.False(t, IsMalformed(err))
	assert.Equal(t, 1, after, "later listeners still run")
	assert.Equal(t, 4, s.GetState(), "the transition itself stands")

	failures := ListenerErrors(err)
	require.Len(t, failures, 1)
	assert.Equal(t, uint64(1), failures[0].Registration)
	assert.Equal(t, "listener exploded", failures[0].Value)
}

func TestNotify_IsolateCollectsEveryFailure(t *testing.T) {
	s := newCounter(t)
	cause := errors.New("bad render")
	s.Subscribe(func() { panic(cause) })
	s.Subscribe(func() {})
	s.Subscribe(func() { panic("second") })

	err := s.Dispatch(op{kind: "add", n: 1})
	assert.ErrorIs(t, err, cause)
	assert.Len(t, ListenerErrors(err), 2)
}

func TestNotify_PropagateListeners(t *testing.T) {
	s := newCounter(t, WithListenerPolicy(PropagateListeners))
	before, after := 0, 0
	s.Subscribe(func() { before++ })
	s.Subscribe(func() { panic("listener exploded") })
	s.Subscribe(func() { after++ })

	err := s.Dispatch(op{kind: "add", n: 1})
	require.Error(t, err)
	assert.True(t, IsListenerError(err))
	assert.Equal(t, 1, before)
	assert.Equal(t, 0, after, "remaining listeners are skipped")
	assert.Equal(t, 1, s.GetState())

	require.Len(t, ListenerErrors(err), 1)
}

func TestDispatch_ReducerPanicPropagates(t *testing.T) {
	s := newCounter(t)
	calls := 0
	s.Subscribe(func() { calls++ })

	assert.PanicsWithValue(t, "reducer exploded", func() {
		_ = s.Dispatch(op{kind: "boom"})
	})
	assert.Equal(t, 0, s.GetState())
	assert.Equal(t, 0, calls)

	// The store is usable after the panic.
	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.Equal(t, 1, s.GetState())
	assert.Equal(t, 1, calls)
}

func TestDispatch_ReducerPanicDropsQueuedActions(t *testing.T) {
	s := newCounter(t)
	fired := false
	s.Subscribe(func() {
		if !fired {
			fired = true
			_ = s.Dispatch(op{kind: "boom"})
			_ = s.Dispatch(op{kind: "add", n: 50})
		}
	})

	assert.Panics(t, func() {
		_ = s.Dispatch(op{kind: "add", n: 1})
	})
	assert.Equal(t, 1, s.GetState())
	assert.Equal(t, 0, s.pending.Len())
	assert.False(t, s.dispatching)
}

func TestDispatch_ReentrantIsDeferred(t *testing.T) {
	s := newCounter(t)
	var seen []int
	nested := false
	s.Subscribe(func() {
		seen = append(seen, s.GetState())
		if !nested {
			nested = true
			require.NoError(t, s.Dispatch(op{kind: "add", n: 10}))
			assert.Equal(t, 1, s.GetState(), "nested dispatch must not run inside the pass")
		}
	})
	var order []string
	s.Subscribe(func() { order = append(order, "second") })

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))

	assert.Equal(t, 11, s.GetState())
	assert.Equal(t, []int{1, 11}, seen)
	assert.Equal(t, []string{"second", "second"}, order, "first pass completes before the queued one")
}

func TestDispatch_ReentrantMalformedIsRejectedImmediately(t *testing.T) {
	s := newCounter(t)
	var nestedErr error
	s.Subscribe(func() {
		if nestedErr == nil {
			nestedErr = s.Dispatch(op{})
		}
	})

	require.NoError(t, s.Dispatch(op{kind: "add", n: 1}))
	assert.True(t, IsMalformed(nestedErr))
	assert.Equal(t, 0, s.pending.Len())
}

func TestDispatch_QueuedListenerFailuresAreReported(t *testing.T) {
	s := newCounter(t)
	s.Subscribe(func() {
		if s.GetState() == 1 {
			_ = s.Dispatch(op{kind: "add", n: 1})
			return
		}
		panic("on second pass")
	})

	err := s.Dispatch(op{kind: "add", n: 1})
	assert.True(t, IsListenerError(err))
	assert.Equal(t, 2, s.GetState())
}

func TestDispatch_ConcurrentCallersAreSerialized(t *testing.T) {
	s := newCounter(t)
	var (
		mu    sync.Mutex
		calls int
	)
	s.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = s.Dispatch(op{kind: "add", n: 1})
		}()
	}

	// Readers may run alongside dispatches.
	for i := 0; i < n; i++ {
		_ = s.GetState()
	}
	wg.Wait()

	assert.Equal(t, n, s.GetState())
	assert.Equal(t, n, calls)
}

func TestPolicy_StringAndParse(t *testing.T) {
	for _, p := range []Policy{IsolateListeners, PropagateListeners} {
		got, ok := ParsePolicy(p.String())
		require.True(t, ok)
		assert.Equal(t, p, got)
	}
	_, ok := ParsePolicy("retry")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Policy(9).String())
}
