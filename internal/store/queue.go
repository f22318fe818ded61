package store

// actionQueue is the FIFO of dispatches deferred while a reduction is running.
//
// It is unbounded so that listeners can dispatch any number of follow-on
// actions without blocking. The queue is not synchronized itself; every
// method is called with Store.mu held.
type actionQueue[A any] struct {
	actions []A
}

func newActionQueue[A any]() *actionQueue[A] {
	return &actionQueue[A]{actions: make([]A, 0, 8)}
}

// Enqueue adds an action to the back of the queue.
func (q *actionQueue[A]) Enqueue(a A) {
	q.actions = append(q.actions, a)
}

// TryDequeue removes and returns the front action.
// Returns false if the queue is empty.
func (q *actionQueue[A]) TryDequeue() (A, bool) {
	var zero A
	if len(q.actions) == 0 {
		return zero, false
	}

	a := q.actions[0]

	// Clear the slot so the backing array does not pin the action's payload.
	q.actions[0] = zero

	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// Len returns the number of queued actions.
func (q *actionQueue[A]) Len() int {
	return len(q.actions)
}

// Reset drops every queued action.
func (q *actionQueue[A]) Reset() {
	var zero A
	for i := range q.actions {
		q.actions[i] = zero
	}
	q.actions = q.actions[:0]
}
