package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/unistate/internal/store"
	"github.com/roach88/unistate/internal/todo"
)

// checkError compares a step's error with the expected error class.
// Any error on a step that expects none is reported.
func checkError(label string, want *Expect, err error) []string {
	expected := ""
	if want != nil {
		expected = want.Error
	}

	switch {
	case expected == ErrMalformed && !store.IsMalformed(err):
		return []string{fmt.Sprintf("%s: expected malformed action error, got %v", label, err)}
	case expected == ErrListener && !store.IsListenerError(err):
		return []string{fmt.Sprintf("%s: expected listener error, got %v", label, err)}
	case expected == "" && err != nil:
		return []string{fmt.Sprintf("%s: unexpected error: %v", label, err)}
	}
	return nil
}

// checkState compares the non-nil slices of want with got.
func checkState(label string, want Expect, got todo.State) []string {
	var failures []string
	if want.Todos != nil && !slices.Equal(want.Todos, got.Todos) {
		failures = append(failures, fmt.Sprintf("%s: todos = %s, want %s", label, formatTodos(got.Todos), formatTodos(want.Todos)))
	}
	if want.Goals != nil && !slices.Equal(want.Goals, got.Goals) {
		failures = append(failures, fmt.Sprintf("%s: goals = %s, want %s", label, formatGoals(got.Goals), formatGoals(want.Goals)))
	}
	return failures
}

func formatTodos(todos []todo.Todo) string {
	out := "["
	for i, t := range todos {
		if i > 0 {
			out += " "
		}
		mark := " "
		if t.Complete {
			mark = "x"
		}
		out += fmt.Sprintf("{%s [%s] %q}", t.ID, mark, t.Name)
	}
	return out + "]"
}

func formatGoals(goals []todo.Goal) string {
	out := "["
	for i, g := range goals {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("{%s %q}", g.ID, g.Name)
	}
	return out + "]"
}
