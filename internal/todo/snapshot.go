package todo

// Snapshot returns s as plain maps and slices, in the shape accepted by
// canon.Marshal. Nil slices become empty lists.
func Snapshot(s State) map[string]any {
	todos := make([]any, len(s.Todos))
	for i, t := range s.Todos {
		todos[i] = map[string]any{
			"id":       string(t.ID),
			"name":     t.Name,
			"complete": t.Complete,
		}
	}

	goals := make([]any, len(s.Goals))
	for i, g := range s.Goals {
		goals[i] = map[string]any{
			"id":   string(g.ID),
			"name": g.Name,
		}
	}

	return map[string]any{
		"todos": todos,
		"goals": goals,
	}
}
