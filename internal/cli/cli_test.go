package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const walkThroughYAML = `name: walk_through
steps:
  - type: ADD_TODO
    todo: {id: "0", name: "Walk the dog"}
    expect:
      todos: [{id: "0", name: "Walk the dog", complete: false}]
  - type: REMOVE_TODO
    id: "0"
  - type: ADD_GOAL
    goal: {id: "0", name: "Lose 10 kilograms."}
  - type: REMOVE_GOAL
    id: "0"
expect:
  todos: []
  goals: []
`

const generatedIDsYAML = `name: generated_ids
steps:
  - type: ADD_TODO
    todo: {name: "Buy milk"}
  - type: ADD_GOAL
    goal: {name: "Read"}
`

const failingYAML = `name: failing
steps:
  - type: ADD_TODO
    todo: {id: "1", name: "X"}
    expect:
      todos: []
`

// writeScenario writes a scenario file into dir and returns its path.
func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// decodeResponse parses a JSON CLIResponse from buf.
func decodeResponse(t *testing.T, buf *bytes.Buffer) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
	return resp
}
