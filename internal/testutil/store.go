package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/filterchain/internal/store"
)

// OpenStore opens a file-backed store in t.TempDir and closes it on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	return OpenStoreAt(t, filepath.Join(t.TempDir(), "test.db"))
}

// OpenStoreAt opens a store at path and closes it on cleanup.
func OpenStoreAt(t testing.TB, path string) *store.Store {
	t.Helper()
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// PeopleSchema creates the my_models/my_scores tables used across tests.
var PeopleSchema = []string{
	`CREATE TABLE my_models (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		name  TEXT,
		email TEXT
	)`,
	`CREATE TABLE my_scores (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		my_model_id INTEGER REFERENCES my_models(id),
		score       INTEGER
	)`,
}

// People holds the ids of the rows inserted by SeedPeople.
type People struct {
	Bob        int64 // Bob, bob@berkeley.edu
	Dave       int64 // Dave, david@berkeley.edu
	WorkingBob int64 // Bob, bob@identified.com
	LowBob     int64 // Bob, bob1@berkeley.edu, score 0
	HighBob    int64 // Bob, bob1@berkeley.edu, score 10
}

// CreatePeopleSchema applies PeopleSchema to st.
func CreatePeopleSchema(t testing.TB, st *store.Store) {
	t.Helper()
	if err := st.ExecAll(context.Background(), PeopleSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
}

// SeedPeople creates the schema and inserts five people. The first three
// have no score; LowBob and HighBob have scores 0 and 10.
func SeedPeople(t testing.TB, st *store.Store) People {
	t.Helper()
	CreatePeopleSchema(t, st)

	insert := func(table string, row store.Row) int64 {
		t.Helper()
		id, err := st.Insert(context.Background(), table, row)
		if err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
		return id
	}

	p := People{
		Bob:        insert("my_models", store.Row{"name": "Bob", "email": "bob@berkeley.edu"}),
		Dave:       insert("my_models", store.Row{"name": "Dave", "email": "david@berkeley.edu"}),
		WorkingBob: insert("my_models", store.Row{"name": "Bob", "email": "bob@identified.com"}),
		LowBob:     insert("my_models", store.Row{"name": "Bob", "email": "bob1@berkeley.edu"}),
		HighBob:    insert("my_models", store.Row{"name": "Bob", "email": "bob1@berkeley.edu"}),
	}
	insert("my_scores", store.Row{"my_model_id": p.LowBob, "score": 0})
	insert("my_scores", store.Row{"my_model_id": p.HighBob, "score": 10})

	return p
}

// IDs extracts the "id" column from rows.
func IDs(rows []store.Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		if id, ok := r["id"].(int64); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
