package chain

import (
	"strings"
)

// Aliases used by the generated SQL.
const (
	layerAliasPrefix = "tmp"
	outerAlias       = "outer_tmp"
	filterAlias      = "join_filter"
)

// Compile converts an ordered filter list into a derived-table join fragment:
//
//	inner join (select outer_tmp.<pk> from (<nested>) as outer_tmp) as join_filter on join_filter.<pk> = <table>.<pk>
//
// The fragment is meant to be spliced into the JOIN list of a query against
// table. Returns an INVALID_ARGUMENT *Error if filters is empty or table or pk
// is blank.
func Compile(table, pk string, filters []FilterSpec) (string, error) {
	if err := validateIdentity(table, pk, len(filters)); err != nil {
		return "", err
	}

	nested, err := Nest(table, filters)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("inner join (select ")
	b.WriteString(outerAlias + "." + pk)
	b.WriteString(" from (")
	b.WriteString(nested)
	b.WriteString(") as " + outerAlias + ") as " + filterAlias)
	b.WriteString(" on " + filterAlias + "." + pk + " = " + table + "." + pk)

	return b.String(), nil
}

// Nest returns the nested statement that applies filters in sequence.
//
// The first filter is applied directly to table via FinderSQL. Every later
// filter at position i (counting from the second filter as 0) wraps the
// accumulated statement as derived table tmp<i>, appends its join rewritten
// against tmp<i>, and appends its condition as the layer's WHERE clause.
func Nest(table string, filters []FilterSpec) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", invalidArgument("", len(filters), "table name is required")
	}
	if len(filters) == 0 {
		return "", invalidArgument(table, 0, "at least one filter is required")
	}

	sql := FinderSQL(table, filters[0])
	for i, f := range filters[1:] {
		sql = wrapLayer(sql, table, layerAlias(i), f)
	}

	return sql, nil
}

// FinderSQL renders the base-case statement for a single filter:
//
//	SELECT <table>.* FROM <table>[ <join>][ WHERE (<condition>)]
//
// Only the table's own columns are selected so the statement can be wrapped
// as a derived table without duplicate column names.
func FinderSQL(table string, f FilterSpec) string {
	var b strings.Builder
	b.WriteString("SELECT " + table + ".* FROM " + table)
	if f.HasJoin() {
		b.WriteString(" " + strings.TrimSpace(f.Join))
	}
	if f.HasCondition() {
		b.WriteString(" WHERE (" + strings.TrimSpace(f.Condition) + ")")
	}
	return b.String()
}

// SelectSQL is a convenience that returns a complete statement selecting the
// filtered rows of table in primary-key order.
func SelectSQL(table, pk string, filters []FilterSpec) (string, error) {
	fragment, err := Compile(table, pk, filters)
	if err != nil {
		return "", err
	}
	return "SELECT " + table + ".* FROM " + table + " " + fragment +
		" ORDER BY " + table + "." + pk + " ASC", nil
}

// CountSQL is a convenience that returns a statement counting the filtered
// rows of table.
func CountSQL(table, pk string, filters []FilterSpec) (string, error) {
	fragment, err := Compile(table, pk, filters)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + table + " " + fragment, nil
}

// wrapLayer applies f to sql as derived table alias.
func wrapLayer(sql, table, alias string, f FilterSpec) string {
	var b strings.Builder
	b.WriteString("select " + alias + ".* from (")
	b.WriteString(sql)
	b.WriteString(") as " + alias)

	if f.HasJoin() {
		b.WriteString(" " + RewriteTableReference(strings.TrimSpace(f.Join), table, alias))
	}

	// The wrapper has no WHERE of its own, so the condition always opens one.
	// Conditions are appended as-is; only joins are rewritten.
	if f.HasCondition() {
		b.WriteString(" WHERE (" + strings.TrimSpace(f.Condition) + ")")
	}

	return b.String()
}

func layerAlias(i int) string {
	return layerAliasPrefix + itoa(i)
}

func validateIdentity(table, pk string, count int) error {
	if strings.TrimSpace(table) == "" {
		return invalidArgument("", count, "table name is required")
	}
	if strings.TrimSpace(pk) == "" {
		return invalidArgument(table, count, "primary key column is required")
	}
	if count == 0 {
		return invalidArgument(table, 0, "at least one filter is required")
	}
	return nil
}
