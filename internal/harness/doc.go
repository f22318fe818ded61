// Package harness runs scripted scenarios against a todo store.
//
// # Scenario Format
//
// Scenarios are YAML files. Each step is an action envelope, optionally with
// the state expected after it:
//
//	name: walk_the_dog
//	description: "Add and remove a todo"
//	policy: isolate            # or propagate
//	listeners: [count]         # subscribed in order; "fail" panics
//	steps:
//	  - type: ADD_TODO
//	    todo: {id: "0", name: Walk the dog, complete: false}
//	    expect:
//	      todos: [{id: "0", name: Walk the dog, complete: false}]
//	  - type: REMOVE_TODO
//	    id: "0"
//	  - type: REMOVE_TODO
//	    id: ""
//	    expect: {error: malformed}
//	expect:
//	  todos: []
//	  goals: []
//
// A step expecting error "listener" passes when at least one listener
// panicked during its dispatch. With policy propagate, listeners after a
// failing one are skipped for that pass, which shows in the notification
// count of a later "count" listener.
//
// Adds may leave out the entity id; the runner fills it from an
// ids.Generator (a deterministic sequence unless configured otherwise).
//
// # Validation
//
// LoadScenario checks a document in three passes: the embedded CUE schema
// (shape, closed fields, allowed types), strict YAML decoding, and semantic
// checks such as a non-empty step list.
//
// # Golden Snapshots
//
// RunWithGolden compares the canonical JSON of the final state with
// testdata/golden/<name>.golden. To regenerate:
//
//	go test ./internal/harness -update
package harness
