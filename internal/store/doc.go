// Package store provides a SQLite execution engine for compiled filter chains.
//
// The store is a thin layer over database/sql and mattn/go-sqlite3. It knows
// nothing about filters: callers hand it a table, a primary key and a JOIN
// fragment produced by package chain, and it runs
//
//	SELECT <table>.* FROM <table> <fragment> ORDER BY <table>.<pk> ASC
//
// # REGEXP
//
// SQLite parses "x REGEXP y" but ships no implementation. The store registers
// its own driver, sqlite3_filterchain, whose connections carry a regexp(y, x)
// function backed by Go's regexp package. Case-insensitive matching uses the
// (?i) flag, e.g. email REGEXP '(?i)berkeley'.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
