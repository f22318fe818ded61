package todo

import (
	"errors"
	"fmt"
)

// Kind is the discriminator of an action.
type Kind string

const (
	KindInit       Kind = "@@INIT"
	KindAddTodo    Kind = "ADD_TODO"
	KindRemoveTodo Kind = "REMOVE_TODO"
	KindToggleTodo Kind = "TOGGLE_TODO"
	KindAddGoal    Kind = "ADD_GOAL"
	KindRemoveGoal Kind = "REMOVE_GOAL"
)

// Kinds lists the kinds a caller may dispatch, in declaration order.
var Kinds = []Kind{KindAddTodo, KindRemoveTodo, KindToggleTodo, KindAddGoal, KindRemoveGoal}

// ErrMissingID is returned by Validate when an action has an empty ID.
var ErrMissingID = errors.New("missing id")

// Action is a requested state transition. The set of implementations is
// closed: only this package can add variants.
type Action interface {
	Kind() Kind
	Validate() error
	isAction()
}

// Init materialises the default state. It is not meant to be dispatched.
type Init struct{}

// AddTodo appends a todo.
type AddTodo struct{ Todo Todo }

// RemoveTodo removes the todo with the given ID.
type RemoveTodo struct{ ID ID }

// ToggleTodo flips the completion flag of the todo with the given ID.
type ToggleTodo struct{ ID ID }

// AddGoal appends a goal.
type AddGoal struct{ Goal Goal }

// RemoveGoal removes the goal with the given ID.
type RemoveGoal struct{ ID ID }

// Kind reports the discriminator of each action variant.
func (Init) Kind() Kind       { return KindInit }
func (AddTodo) Kind() Kind    { return KindAddTodo }
func (RemoveTodo) Kind() Kind { return KindRemoveTodo }
func (ToggleTodo) Kind() Kind { return KindToggleTodo }
func (AddGoal) Kind() Kind    { return KindAddGoal }
func (RemoveGoal) Kind() Kind { return KindRemoveGoal }

func (Init) isAction()       {}
func (AddTodo) isAction()    {}
func (RemoveTodo) isAction() {}
func (ToggleTodo) isAction() {}
func (AddGoal) isAction()    {}
func (RemoveGoal) isAction() {}

// Validate always succeeds for Init.
func (Init) Validate() error { return nil }

// Validate rejects an action whose target ID is empty with ErrMissingID.
func (a AddTodo) Validate() error    { return requireID(a.Kind(), a.Todo.ID) }
func (a RemoveTodo) Validate() error { return requireID(a.Kind(), a.ID) }
func (a ToggleTodo) Validate() error { return requireID(a.Kind(), a.ID) }
func (a AddGoal) Validate() error    { return requireID(a.Kind(), a.Goal.ID) }
func (a RemoveGoal) Validate() error { return requireID(a.Kind(), a.ID) }

// String returns the action kind, which is how actions appear in logs.
func (i Init) String() string       { return string(i.Kind()) }
func (a AddTodo) String() string    { return string(a.Kind()) }
func (a RemoveTodo) String() string { return string(a.Kind()) }
func (a ToggleTodo) String() string { return string(a.Kind()) }
func (a AddGoal) String() string    { return string(a.Kind()) }
func (a RemoveGoal) String() string { return string(a.Kind()) }

func requireID(k Kind, id ID) error {
	if id == "" {
		return fmt.Errorf("%s: %w", k, ErrMissingID)
	}
	return nil
}

// AddTodoAction returns an action that appends t.
func AddTodoAction(t Todo) Action { return AddTodo{Todo: t} }

// RemoveTodoAction returns an action that removes the todo with the given ID.
func RemoveTodoAction(id ID) Action { return RemoveTodo{ID: id} }

// ToggleTodoAction returns an action that flips the todo with the given ID.
func ToggleTodoAction(id ID) Action { return ToggleTodo{ID: id} }

// AddGoalAction returns an action that appends g.
func AddGoalAction(g Goal) Action { return AddGoal{Goal: g} }

// RemoveGoalAction returns an action that removes the goal with the given ID.
func RemoveGoalAction(id ID) Action { return RemoveGoal{ID: id} }
