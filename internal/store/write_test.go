package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_ReturnsRowID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, "CREATE TABLE scores (id INTEGER PRIMARY KEY, owner_id INTEGER, score INTEGER)"))

	id1, err := s.Insert(ctx, "scores", Row{"owner_id": 1, "score": 0})
	require.NoError(t, err)
	id2, err := s.Insert(ctx, "scores", Row{"owner_id": 2, "score": 10})
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	rows, err := s.Query(ctx, "SELECT score FROM scores WHERE owner_id = ?", 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10), rows[0]["score"])
}

func TestInsert_DefaultValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, note TEXT DEFAULT 'none')"))

	id, err := s.Insert(ctx, "t", Row{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestInsert_UnknownTable(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Insert(context.Background(), "missing", Row{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert into missing")
}
