// Package chain compiles an ordered list of query filters into a single
// derived-table join that applies them in sequence.
//
// Each filter is a pair of raw SQL fragments: an optional JOIN clause and an
// optional boolean condition. Merging several such filters into one WHERE/JOIN
// clause set is ambiguous when two of them join the same table with different
// conditions. Instead of merging, the compiler nests every filter as its own
// subquery layer:
//
//	SELECT t.* FROM t <join0> WHERE (<cond0>)                    -- base case
//	select tmp0.* from (<base>) as tmp0 <join1'> WHERE (<cond1>)  -- layer 1
//	select tmp1.* from (<layer1>) as tmp1 <join2'> WHERE (<cond2>) -- layer 2
//
// where joinN' is joinN with the first reference to t rewritten to the layer's
// alias (see RewriteTableReference). The nested statement is finally correlated
// back to the base table:
//
//	inner join (select outer_tmp.id from (<nested>) as outer_tmp) as join_filter
//	  on join_filter.id = t.id
//
// # Fragments Are Opaque
//
// The compiler performs no SQL validation and no parameter binding. Fragments
// must already be fully rendered. A malformed fragment surfaces as a syntax
// error from the database when the final statement runs.
//
// # Rewrite Fragility
//
// The table-name rewrite is a literal replacement of the first occurrence only.
// A join that mentions the table name twice, or inside a longer identifier,
// is rewritten ambiguously. Audit reports those cases so callers can surface
// them instead of silently running a wrong query. Conditions are never
// rewritten.
//
// # Concurrency
//
// Every function in this package is pure. They are safe for concurrent use.
package chain
