package chain

import "strings"

// FilterSpec is one named scope's contribution to a query.
//
// Join is a rendered JOIN expression (or several) as it would appear attached
// to the target table. Condition is a rendered boolean expression usable in a
// WHERE clause. Either may be empty. Name is only used in diagnostics.
type FilterSpec struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Join      string `json:"joins,omitempty" yaml:"joins,omitempty"`
	Condition string `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// HasJoin reports whether the filter carries a non-blank join fragment.
func (f FilterSpec) HasJoin() bool {
	return strings.TrimSpace(f.Join) != ""
}

// HasCondition reports whether the filter carries a non-blank condition.
func (f FilterSpec) HasCondition() bool {
	return strings.TrimSpace(f.Condition) != ""
}

// label returns a human-readable identifier for position i.
func (f FilterSpec) label(i int) string {
	if f.Name != "" {
		return f.Name
	}
	return "#" + itoa(i)
}
