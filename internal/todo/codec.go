package todo

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when decoding an envelope whose type is not a
// dispatchable kind.
var ErrUnknownKind = errors.New("unknown action type")

// Envelope is the plain-object form of an action: a type tag plus the one
// payload field that type needs. It is what gets written to the journal and
// read from scenario files.
type Envelope struct {
	Type Kind  `json:"type" yaml:"type"`
	Todo *Todo `json:"todo,omitempty" yaml:"todo,omitempty"`
	Goal *Goal `json:"goal,omitempty" yaml:"goal,omitempty"`
	ID   ID    `json:"id,omitempty" yaml:"id,omitempty"`
}

// EncodeAction converts a to its envelope.
func EncodeAction(a Action) (Envelope, error) {
	switch a := a.(type) {
	case AddTodo:
		t := a.Todo
		return Envelope{Type: a.Kind(), Todo: &t}, nil
	case RemoveTodo:
		return Envelope{Type: a.Kind(), ID: a.ID}, nil
	case ToggleTodo:
		return Envelope{Type: a.Kind(), ID: a.ID}, nil
	case AddGoal:
		g := a.Goal
		return Envelope{Type: a.Kind(), Goal: &g}, nil
	case RemoveGoal:
		return Envelope{Type: a.Kind(), ID: a.ID}, nil
	case nil:
		return Envelope{}, errors.New("encode action: nil action")
	default:
		return Envelope{}, fmt.Errorf("encode action: %w: %s", ErrUnknownKind, a.Kind())
	}
}

// DecodeAction converts an envelope back into an action.
//
// The envelope must carry exactly the payload its type requires. The
// resulting action is validated, so an empty id is rejected here.
func DecodeAction(e Envelope) (Action, error) {
	var a Action
	switch e.Type {
	case KindAddTodo:
		if e.Todo == nil || e.Goal != nil || e.ID != "" {
			return nil, payloadError(e.Type, "todo")
		}
		a = AddTodo{Todo: *e.Todo}
	case KindAddGoal:
		if e.Goal == nil || e.Todo != nil || e.ID != "" {
			return nil, payloadError(e.Type, "goal")
		}
		a = AddGoal{Goal: *e.Goal}
	case KindRemoveTodo, KindToggleTodo, KindRemoveGoal:
		if e.Todo != nil || e.Goal != nil {
			return nil, payloadError(e.Type, "id")
		}
		switch e.Type {
		case KindRemoveTodo:
			a = RemoveTodo{ID: e.ID}
		case KindToggleTodo:
			a = ToggleTodo{ID: e.ID}
		default:
			a = RemoveGoal{ID: e.ID}
		}
	default:
		return nil, fmt.Errorf("decode action: %w: %q", ErrUnknownKind, e.Type)
	}

	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	return a, nil
}

func payloadError(k Kind, field string) error {
	return fmt.Errorf("decode action: %s requires exactly the %q field", k, field)
}
