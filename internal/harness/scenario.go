package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/filterchain/internal/scope"
)

// maxPermuted bounds the chain length for permute checks (7! orderings).
const maxPermuted = 7

// Scenario defines a database, a model with named scopes, and the chains to
// run against it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema holds DDL statements applied in order to a fresh database.
	Schema []string `yaml:"schema"`

	// Fixtures are rows inserted after the schema is applied.
	Fixtures []Fixture `yaml:"fixtures,omitempty"`

	// Model declares the table, associations and scopes under test.
	Model ModelSpec `yaml:"model"`

	// Chains are the scope chains to execute.
	Chains []ChainCase `yaml:"chains"`
}

// Fixture is a batch of rows for one table.
type Fixture struct {
	Table string           `yaml:"table"`
	Rows  []map[string]any `yaml:"rows"`
}

// ModelSpec describes a scope.Model.
type ModelSpec struct {
	Table        string            `yaml:"table"`
	PrimaryKey   string            `yaml:"primary_key,omitempty"`
	Associations []AssociationSpec `yaml:"associations,omitempty"`
	Scopes       []ScopeSpec       `yaml:"scopes"`
}

// AssociationSpec describes a scope.Association.
type AssociationSpec struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // has_one, has_many or belongs_to
	Table      string `yaml:"table"`
	ForeignKey string `yaml:"foreign_key"`
	TargetKey  string `yaml:"target_key,omitempty"`
}

// ScopeSpec describes a scope.Definition.
type ScopeSpec struct {
	Name       string   `yaml:"name"`
	Conditions string   `yaml:"conditions,omitempty"`
	Joins      []string `yaml:"joins,omitempty"`
	Params     int      `yaml:"params,omitempty"`
}

// ChainCase is one ordered list of scope invocations and its expectations.
type ChainCase struct {
	Name    string       `yaml:"name"`
	Invoke  []InvokeStep `yaml:"invoke"`
	Permute bool         `yaml:"permute,omitempty"`
	Expect  Expectation  `yaml:"expect"`
}

// InvokeStep calls one named scope.
type InvokeStep struct {
	Scope string `yaml:"scope"`
	Args  []any  `yaml:"args,omitempty"`
}

// Expectation is what a chain must produce.
type Expectation struct {
	// Rows are matched in primary-key order. Only listed columns are compared.
	// Nil skips the row check; an empty list requires no rows.
	Rows []map[string]any `yaml:"rows"`

	// Count, when set, is the required number of rows.
	Count *int64 `yaml:"count,omitempty"`

	// Error, when set, is the error code the chain must fail with
	// (INVALID_ARGUMENT or MALFORMED_FRAGMENT).
	Error string `yaml:"error,omitempty"`
}

// invocations converts the chain's steps into scope invocations.
func (c ChainCase) invocations() []scope.Invocation {
	invs := make([]scope.Invocation, len(c.Invoke))
	for i, step := range c.Invoke {
		invs[i] = scope.Call(step.Scope, step.Args...)
	}
	return invs
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Schema) == 0 {
		return fmt.Errorf("schema list is required and must be non-empty")
	}
	if s.Model.Table == "" {
		return fmt.Errorf("model.table is required")
	}
	if len(s.Chains) == 0 {
		return fmt.Errorf("chains list is required and must be non-empty")
	}

	for i, f := range s.Fixtures {
		if f.Table == "" {
			return fmt.Errorf("fixtures[%d]: table is required", i)
		}
	}

	for i, a := range s.Model.Associations {
		switch scope.AssociationKind(a.Kind) {
		case scope.HasOne, scope.HasMany, scope.BelongsTo:
		default:
			return fmt.Errorf("model.associations[%d]: unknown kind %q", i, a.Kind)
		}
	}

	for i, sc := range s.Model.Scopes {
		if sc.Name == "" {
			return fmt.Errorf("model.scopes[%d]: name is required", i)
		}
	}

	seen := make(map[string]bool, len(s.Chains))
	for i, c := range s.Chains {
		if c.Name == "" {
			return fmt.Errorf("chains[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("chains[%d]: duplicate chain name %q", i, c.Name)
		}
		seen[c.Name] = true

		// An empty chain is only meaningful as an expected failure.
		if len(c.Invoke) == 0 && c.Expect.Error == "" {
			return fmt.Errorf("chains[%d]: invoke list is required unless expect.error is set", i)
		}
		for j, step := range c.Invoke {
			if step.Scope == "" {
				return fmt.Errorf("chains[%d].invoke[%d]: scope is required", i, j)
			}
		}
		if c.Permute && len(c.Invoke) > maxPermuted {
			return fmt.Errorf("chains[%d]: permute supports at most %d invocations, got %d", i, maxPermuted, len(c.Invoke))
		}
		if c.Expect.Count != nil && *c.Expect.Count < 0 {
			return fmt.Errorf("chains[%d].expect: count must be non-negative", i)
		}
	}

	return nil
}
