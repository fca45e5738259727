package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createPeople creates a small people table with three rows.
func createPeople(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.Exec(ctx, `CREATE TABLE people (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, email TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, p := range []Row{
		{"name": "Bob", "email": "bob@berkeley.edu"},
		{"name": "Dave", "email": "david@berkeley.edu"},
		{"name": "Bob", "email": "bob@identified.com"},
	} {
		if _, err := s.Insert(ctx, "people", p); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}
