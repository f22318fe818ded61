package todo

// Reduce is the root reducer. It rebuilds the state record from every slice
// reducer on each call, whichever slice the action concerns.
func Reduce(prev State, a Action) State {
	return State{
		Todos: Todos(prev.Todos, a),
		Goals: Goals(prev.Goals, a),
	}
}

// Todos reduces the todo slice. A nil prev is the empty list.
func Todos(prev []Todo, a Action) []Todo {
	if prev == nil {
		prev = []Todo{}
	}

	switch a := a.(type) {
	case AddTodo:
		return appendCopy(prev, a.Todo)

	case RemoveTodo:
		if indexTodo(prev, a.ID) < 0 {
			return prev
		}
		next := make([]Todo, 0, len(prev)-1)
		for _, t := range prev {
			if t.ID != a.ID {
				next = append(next, t)
			}
		}
		return next

	case ToggleTodo:
		if indexTodo(prev, a.ID) < 0 {
			return prev
		}
		next := make([]Todo, len(prev))
		for i, t := range prev {
			if t.ID == a.ID {
				t.Complete = !t.Complete
			}
			next[i] = t
		}
		return next

	default:
		return prev
	}
}

// Goals reduces the goal slice. A nil prev is the empty list.
func Goals(prev []Goal, a Action) []Goal {
	if prev == nil {
		prev = []Goal{}
	}

	switch a := a.(type) {
	case AddGoal:
		return appendCopy(prev, a.Goal)

	case RemoveGoal:
		if indexGoal(prev, a.ID) < 0 {
			return prev
		}
		next := make([]Goal, 0, len(prev)-1)
		for _, g := range prev {
			if g.ID != a.ID {
				next = append(next, g)
			}
		}
		return next

	default:
		return prev
	}
}

// appendCopy appends v to a fresh backing array so prev is never shared
// with the result.
func appendCopy[T any](prev []T, v T) []T {
	next := make([]T, len(prev), len(prev)+1)
	copy(next, prev)
	return append(next, v)
}

func indexTodo(todos []Todo, id ID) int {
	for i, t := range todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func indexGoal(goals []Goal, id ID) int {
	for i, g := range goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}
