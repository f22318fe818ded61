// Package journal keeps a SQLite-backed audit trail of dispatched actions.
//
// A Recorder sits in front of a todo.Store. For every action it dispatches it
// appends one row holding the action envelope and the digest of the state the
// reduction produced. Verify folds a recorded session through todo.Reduce from
// the default state and checks every digest, which proves that the recorded
// history reproduces the recorded states.
//
// The journal is write-only from the container's point of view. Nothing in
// this package loads state back into a live store.
//
// # Schema
//
//   - sessions: one row per Recorder, with the digest of its starting state
//   - dispatches: (session, seq) primary key, kind, canonical JSON payload
//     and state digest
//
// Ordering uses the logical seq from Clock, never wall-clock time. All reads
// use ORDER BY seq ASC so replays see identical sequences.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package journal
