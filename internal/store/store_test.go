package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Exec(context.Background(), "CREATE TABLE t (id INTEGER PRIMARY KEY)"))
	n, err := s.Count(context.Background(), "t", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestExecAll_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.ExecAll(ctx, []string{
		"CREATE TABLE ok (id INTEGER PRIMARY KEY)",
		"THIS IS NOT SQL",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")

	_, err = s.Query(ctx, "SELECT * FROM ok")
	assert.Error(t, err, "table from the failed batch must not exist")
}

func TestRegexp(t *testing.T) {
	s := createTestStore(t)
	createPeople(t, s)
	ctx := context.Background()

	rows, err := s.Query(ctx, "SELECT name FROM people WHERE email REGEXP '(?i)BERKELEY' ORDER BY id")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob", rows[0]["name"])
	assert.Equal(t, "Dave", rows[1]["name"])

	_, err = s.Query(ctx, "SELECT name FROM people WHERE email REGEXP '('")
	assert.Error(t, err)
}

func TestRegexpMatch_Values(t *testing.T) {
	ok, err := regexpMatch("^1", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = regexpMatch("^1", int64(12))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = regexpMatch("edu$", []byte("a.edu"))
	require.NoError(t, err)
	assert.True(t, ok)
}
