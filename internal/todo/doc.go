// Package todo is the application configuration for the state container:
// the todo and goal entities, the actions that change them, and the reducers
// that compose into the root reducer.
//
// Actions are a closed set of structs implementing Action. Each carries
// exactly the payload its kind needs:
//
//	ADD_TODO{todo}  REMOVE_TODO{id}  TOGGLE_TODO{id}
//	ADD_GOAL{goal}  REMOVE_GOAL{id}
//
// plus Init, which the store reduces once at construction.
//
// Reducers never mutate their input. Every dispatch rebuilds the State
// record from the slice reducers, whichever slice the action touches.
package todo
