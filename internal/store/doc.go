// Package store implements the unidirectional state container.
//
// A Store owns exactly one state value, a registry of listeners and the
// dispatch/reduce cycle. The state only changes through Dispatch, which runs
// the configured reducer and then notifies every listener.
//
// # Contract
//
//   - New, NewWithInit: the reducer is pure and total. It is called once at
//     construction with the zero state and the init action (the zero action
//     for New) to materialise the default state.
//   - GetState: returns the current value. No side effects.
//   - Subscribe: registers a zero-argument listener and returns an idempotent
//     unsubscribe function. Each call is a separate registration, so the same
//     function subscribed twice is notified twice and must be unsubscribed twice.
//   - Dispatch: validates the action, reduces, swaps the state slot and notifies
//     listeners in registration order.
//
// # Notification
//
// The listener registry is snapshotted at the start of every notification
// pass. Subscribing or unsubscribing from inside a listener only affects the
// next pass.
//
// Listener panics are handled according to the Policy:
//
//   - IsolateListeners (default): the panic is recovered, logged, and the
//     remaining listeners still run. Dispatch reports the failures.
//   - PropagateListeners: the first panic aborts the rest of the pass.
//
// Reducer panics are never recovered. They reach the caller of Dispatch.
//
// # Re-entrancy
//
// Only one reduction runs at a time. A Dispatch that arrives while another is
// in progress, whether from a listener or from a different goroutine, is
// queued and returns nil straight away. The in-flight dispatcher drains the
// queue in FIFO order once its own notification pass has finished, so each
// queued action still gets a full reduce and notify cycle before the outer
// Dispatch returns.
package store
