package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/unistate/internal/canon"
	"github.com/roach88/unistate/internal/todo"
)

// Snapshot is the canonical JSON form of a result: scenario name,
// notification count and final state.
func Snapshot(r *Result) ([]byte, error) {
	return canon.Marshal(map[string]any{
		"scenario":      r.Name,
		"notifications": r.Notifications,
		"state":         todo.Snapshot(r.Final),
	})
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/<name>.golden.
//
// Expectation failures inside the scenario are reported through t as well.
func RunWithGolden(t *testing.T, s *Scenario, opts ...RunOption) *Result {
	t.Helper()

	result, err := Run(context.Background(), s, opts...)
	if err != nil {
		t.Fatalf("run %s: %v", s.Name, err)
	}
	for _, f := range result.Failures {
		t.Errorf("%s: %s", s.Name, f)
	}

	AssertGolden(t, s.Name, result)
	return result
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, r *Result) {
	t.Helper()

	data, err := Snapshot(r)
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
