package chain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// RewriteTableReference replaces the first occurrence of table in fragment
// with alias. Matching is NFC-aware, so the same identifier spelled with a
// different Unicode composition still matches, but only the matched bytes
// change. Everything else in fragment is returned as written.
//
// The replacement is textual. It does not know about identifier boundaries,
// quoting, or later occurrences; Audit reports when that matters.
func RewriteTableReference(fragment, table, alias string) string {
	idx, n := indexTable(fragment, table, 0)
	if idx < 0 {
		return fragment
	}
	return fragment[:idx] + alias + fragment[idx+n:]
}

// indexTable returns the byte offset and length of the first span of s at or
// after from whose NFC form equals the NFC form of table, or -1.
func indexTable(s, table string, from int) (int, int) {
	if table == "" || from > len(s) {
		return -1, 0
	}
	if norm.NFC.IsNormalString(s) && norm.NFC.IsNormalString(table) {
		i := strings.Index(s[from:], table)
		if i < 0 {
			return -1, 0
		}
		return from + i, len(table)
	}

	want := norm.NFC.String(table)
	// A decomposed spelling is never more than a few times longer.
	maxSpan := 4*len(want) + utf8.UTFMax
	for i := from; i < len(s); {
		if strings.HasPrefix(s[i:], table) {
			return i, len(table)
		}
		for j := i + 1; j <= len(s) && j-i <= maxSpan; j++ {
			if !utf8.RuneStart(byteAt(s, j)) {
				continue
			}
			if norm.NFC.String(s[i:j]) == want {
				return i, j - i
			}
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1, 0
}

// byteAt returns s[i], treating the end of s as a rune start.
func byteAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

// countTable counts non-overlapping occurrences of table in s.
func countTable(s, table string) int {
	count := 0
	for idx, n := indexTable(s, table, 0); idx >= 0; idx, n = indexTable(s, table, idx+n) {
		count++
	}
	return count
}

// WarningKind classifies an ambiguous rewrite.
type WarningKind string

const (
	// WarnEmbedded means the first match of the table name sits inside a
	// longer identifier, so the rewrite renames the wrong thing.
	WarnEmbedded WarningKind = "embedded"

	// WarnMultiple means the table name occurs more than once in a join.
	// Only the first occurrence is rewritten.
	WarnMultiple WarningKind = "multiple"

	// WarnUnreferencedJoin means a join never mentions the table, so it is
	// not correlated with the derived table it is attached to.
	WarnUnreferencedJoin WarningKind = "unreferenced_join"

	// WarnConditionReference means a condition names the table. Conditions
	// are not rewritten, and the base table is not in scope inside a layer.
	WarnConditionReference WarningKind = "condition_reference"
)

// Warning describes one rewrite hazard found by Audit.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Filter   string      `json:"filter"`
	Position int         `json:"position"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s at %d]: %s", w.Kind, w.Filter, w.Position, w.Message)
}

// Audit inspects filters for the cases where RewriteTableReference is
// ambiguous. The first filter runs against the real table and is never
// rewritten, so only positions >= 1 are checked. Returns nil when the chain
// is clean.
func Audit(table string, filters []FilterSpec) []Warning {
	if table == "" {
		return nil
	}

	var warnings []Warning
	add := func(kind WarningKind, pos int, f FilterSpec, format string, args ...any) {
		warnings = append(warnings, Warning{
			Kind:     kind,
			Filter:   f.label(pos),
			Position: pos,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for pos := 1; pos < len(filters); pos++ {
		f := filters[pos]
		alias := layerAlias(pos - 1)

		if f.HasJoin() {
			join := f.Join
			idx, n := indexTable(join, table, 0)
			switch {
			case idx < 0:
				add(WarnUnreferencedJoin, pos, f,
					"join does not reference %q and will not be correlated with %s", table, alias)
			default:
				if embeddedAt(join, idx, n) {
					add(WarnEmbedded, pos, f,
						"first occurrence of %q is part of a longer identifier", table)
				}
				if count := countTable(join, table); count > 1 {
					add(WarnMultiple, pos, f,
						"%q occurs %d times; only the first is rewritten to %s", table, count, alias)
				}
			}
		}

		if f.HasCondition() {
			if referencesTable(f.Condition, table) {
				add(WarnConditionReference, pos, f,
					"condition references %q, which is not in scope inside %s", table, alias)
			}
		}
	}

	return warnings
}

// referencesTable reports whether any occurrence of table in s stands on its
// own rather than inside a longer identifier.
func referencesTable(s, table string) bool {
	for idx, n := indexTable(s, table, 0); idx >= 0; idx, n = indexTable(s, table, idx+n) {
		if !embeddedAt(s, idx, n) {
			return true
		}
	}
	return false
}

// embeddedAt reports whether s[idx:idx+n] is adjacent to identifier runes.
func embeddedAt(s string, idx, n int) bool {
	if idx > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:idx])
		if isIdentRune(r) {
			return true
		}
	}
	if end := idx + n; end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isIdentRune(r) {
			return true
		}
	}
	return false
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
