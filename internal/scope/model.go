package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/filterchain/internal/chain"
)

// Model errors.
var (
	ErrUnknownScope       = errors.New("unknown scope")
	ErrDuplicateScope     = errors.New("duplicate scope")
	ErrDuplicateAssoc     = errors.New("duplicate association")
	ErrInvalidDefinition  = errors.New("invalid definition")
	ErrUnknownAssociation = errors.New("unknown association")
)

// AssociationKind is the cardinality of an association.
type AssociationKind string

const (
	HasOne    AssociationKind = "has_one"
	HasMany   AssociationKind = "has_many"
	BelongsTo AssociationKind = "belongs_to"
)

// Association links a model to another table for join rendering.
type Association struct {
	Name  string
	Kind  AssociationKind
	Table string

	// ForeignKey is the column on Table (has_one, has_many) or on the
	// model's own table (belongs_to).
	ForeignKey string

	// TargetKey is the referenced key on Table for belongs_to. Defaults to "id".
	TargetKey string
}

// JoinSQL renders the INNER JOIN for this association from the owner table.
func (a Association) JoinSQL(ownerTable, ownerPK string) string {
	if a.Kind == BelongsTo {
		target := a.TargetKey
		if target == "" {
			target = "id"
		}
		return fmt.Sprintf("INNER JOIN %s ON %s.%s = %s.%s", a.Table, a.Table, target, ownerTable, a.ForeignKey)
	}
	return fmt.Sprintf("INNER JOIN %s ON %s.%s = %s.%s", a.Table, a.Table, a.ForeignKey, ownerTable, ownerPK)
}

// Definition is a named scope.
type Definition struct {
	Name string

	// Conditions is a WHERE fragment. It may contain ? placeholders, filled
	// from the arguments passed to Model.Scope.
	Conditions string

	// Joins lists association names or raw JOIN fragments.
	Joins []string

	// Params is the number of arguments the scope takes.
	Params int
}

// Invocation is a scope name with its arguments.
type Invocation struct {
	Name string
	Args []any
}

// Call builds an Invocation.
func Call(name string, args ...any) Invocation {
	return Invocation{Name: name, Args: args}
}

// Model holds a table's associations and named scopes.
// Safe for concurrent use.
type Model struct {
	Table      string
	PrimaryKey string

	mu           sync.RWMutex
	associations map[string]Association
	scopes       map[string]Definition
}

// NewModel creates a model for table. An empty pk defaults to "id".
func NewModel(table, pk string) *Model {
	if pk == "" {
		pk = "id"
	}
	return &Model{
		Table:        table,
		PrimaryKey:   pk,
		associations: make(map[string]Association),
		scopes:       make(map[string]Definition),
	}
}

// HasOne declares a one-to-one association whose foreign key lives on table.
func (m *Model) HasOne(name, table, foreignKey string) error {
	return m.Associate(Association{Name: name, Kind: HasOne, Table: table, ForeignKey: foreignKey})
}

// HasMany declares a one-to-many association whose foreign key lives on table.
func (m *Model) HasMany(name, table, foreignKey string) error {
	return m.Associate(Association{Name: name, Kind: HasMany, Table: table, ForeignKey: foreignKey})
}

// BelongsTo declares an association whose foreign key lives on the model.
func (m *Model) BelongsTo(name, table, foreignKey, targetKey string) error {
	return m.Associate(Association{Name: name, Kind: BelongsTo, Table: table, ForeignKey: foreignKey, TargetKey: targetKey})
}

// Associate registers an association.
func (m *Model) Associate(a Association) error {
	if a.Name == "" || a.Table == "" || a.ForeignKey == "" {
		return fmt.Errorf("%w: association needs name, table and foreign key", ErrInvalidDefinition)
	}
	switch a.Kind {
	case HasOne, HasMany, BelongsTo:
	default:
		return fmt.Errorf("%w: association %q has unknown kind %q", ErrInvalidDefinition, a.Name, a.Kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.associations[a.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAssoc, a.Name)
	}
	m.associations[a.Name] = a
	return nil
}

// Define registers a named scope.
func (m *Model) Define(def Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: scope name is required", ErrInvalidDefinition)
	}
	if n := countPlaceholders(def.Conditions); n != def.Params {
		return fmt.Errorf("%w: scope %q declares %d params but conditions have %d placeholders",
			ErrInvalidDefinition, def.Name, def.Params, n)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scopes[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateScope, def.Name)
	}
	m.scopes[def.Name] = def
	return nil
}

// Scopes returns the defined scope names in sorted order.
func (m *Model) Scopes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.scopes))
	for name := range m.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scope renders the named scope with args into a FilterSpec.
func (m *Model) Scope(name string, args ...any) (chain.FilterSpec, error) {
	m.mu.RLock()
	def, ok := m.scopes[name]
	m.mu.RUnlock()
	if !ok {
		return chain.FilterSpec{}, fmt.Errorf("%w: %s.%s", ErrUnknownScope, m.Table, name)
	}

	cond, err := Sanitize(def.Conditions, args...)
	if err != nil {
		return chain.FilterSpec{}, fmt.Errorf("scope %s: %w", name, err)
	}

	join, err := m.renderJoins(def.Joins)
	if err != nil {
		return chain.FilterSpec{}, fmt.Errorf("scope %s: %w", name, err)
	}

	return chain.FilterSpec{Name: name, Join: join, Condition: cond}, nil
}

// Filters renders each invocation in order.
func (m *Model) Filters(invocations ...Invocation) ([]chain.FilterSpec, error) {
	filters := make([]chain.FilterSpec, 0, len(invocations))
	for _, inv := range invocations {
		f, err := m.Scope(inv.Name, inv.Args...)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// FilterChain renders the invocations and compiles them into a single
// derived-table join fragment for this model's table.
func (m *Model) FilterChain(invocations ...Invocation) (string, error) {
	filters, err := m.Filters(invocations...)
	if err != nil {
		return "", err
	}
	return chain.Compile(m.Table, m.PrimaryKey, filters)
}

// renderJoins resolves association names and passes raw fragments through.
func (m *Model) renderJoins(joins []string) (string, error) {
	if len(joins) == 0 {
		return "", nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	parts := make([]string, 0, len(joins))
	for _, j := range joins {
		j = strings.TrimSpace(j)
		if j == "" {
			continue
		}
		if a, ok := m.associations[j]; ok {
			parts = append(parts, a.JoinSQL(m.Table, m.PrimaryKey))
			continue
		}
		if isIdentifier(j) {
			return "", fmt.Errorf("%w: %s", ErrUnknownAssociation, j)
		}
		parts = append(parts, j)
	}
	return strings.Join(parts, " "), nil
}

// isIdentifier reports whether s looks like a bare association name rather
// than a JOIN fragment.
func isIdentifier(s string) bool {
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
