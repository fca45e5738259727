package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedPeople(t *testing.T) {
	st := OpenStore(t)
	p := SeedPeople(t, st)

	assert.Equal(t, People{Bob: 1, Dave: 2, WorkingBob: 3, LowBob: 4, HighBob: 5}, p)

	rows, err := st.Find(context.Background(), "my_models", "id", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, IDs(rows))

	n, err := st.Count(context.Background(), "my_scores", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestIDs_SkipsNonInteger(t *testing.T) {
	assert.Equal(t, []int64{7}, IDs([]map[string]any{{"id": int64(7)}, {"id": "x"}, {}}))
}
