package harness

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/unistate/internal/store"
	"github.com/roach88/unistate/internal/todo"
)

//go:embed schema.cue
var schemaCUE string

// Expected-error classes a step can declare.
const (
	ErrMalformed = "malformed" // the action was rejected
	ErrListener  = "listener"  // at least one listener panicked
)

// Listener kinds a scenario can register.
const (
	ListenerCount = "count" // counts notifications
	ListenerFail  = "fail"  // panics on every notification
)

// Scenario is a scripted sequence of dispatches with expectations.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description,omitempty"`

	// Policy is the listener policy: "isolate" (default) or "propagate".
	Policy string `yaml:"policy,omitempty"`

	// Listeners are subscribed in this order before the first step.
	// Default: a single "count" listener.
	Listeners []string `yaml:"listeners,omitempty"`

	// Steps are dispatched in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the final state.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one action envelope plus the state expected after it.
type Step struct {
	todo.Envelope `yaml:",inline"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists expected slices. A nil slice is not checked; an empty one
// must match an empty slice.
type Expect struct {
	Todos []todo.Todo `yaml:"todos,omitempty"`
	Goals []todo.Goal `yaml:"goals,omitempty"`

	// Error names the expected error class: "malformed" or "listener".
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario validates data against the CUE schema, decodes it strictly
// and checks its semantics.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// SchemaError lists every schema violation of a document.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "schema violation: " + strings.Join(e.Problems, "; ")
}

// validateSchema unifies the generic YAML document with #Scenario.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return &SchemaError{Problems: []string{"empty document"}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		return &SchemaError{Problems: problems}
	}
	return nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, errors.New("at least one step is required"))
	}
	if s.Policy != "" {
		if _, ok := store.ParsePolicy(s.Policy); !ok {
			errs = append(errs, fmt.Errorf("unknown policy %q", s.Policy))
		}
	}
	for i, l := range s.Listeners {
		if l != ListenerCount && l != ListenerFail {
			errs = append(errs, fmt.Errorf("listener %d: unknown kind %q", i+1, l))
		}
	}
	for i, step := range s.Steps {
		if !isDispatchable(step.Type) {
			errs = append(errs, fmt.Errorf("step %d: unknown type %q", i+1, step.Type))
		}
		if step.Expect != nil && !isErrorClass(step.Expect.Error) {
			errs = append(errs, fmt.Errorf("step %d: unknown error class %q", i+1, step.Expect.Error))
		}
	}
	return errors.Join(errs...)
}

func isErrorClass(class string) bool {
	return class == "" || class == ErrMalformed || class == ErrListener
}

func isDispatchable(k todo.Kind) bool {
	for _, known := range todo.Kinds {
		if k == known {
			return true
		}
	}
	return false
}
