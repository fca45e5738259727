package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "score_join.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "score_join", scenario.Name)
	assert.Len(t, scenario.Schema, 2)
	assert.Len(t, scenario.Fixtures, 2)
	assert.Equal(t, "my_models", scenario.Model.Table)
	require.Len(t, scenario.Model.Associations, 1)
	assert.Equal(t, "has_one", scenario.Model.Associations[0].Kind)
	require.Len(t, scenario.Chains, 2)
	assert.True(t, scenario.Chains[0].Permute)
	assert.Equal(t, []any{1.0}, scenario.Chains[0].Invoke[2].Args)
	require.NotNil(t, scenario.Chains[0].Expect.Count)
	assert.Equal(t, int64(1), *scenario.Chains[0].Expect.Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	content := `
name: typo
description: "typo"
schema: ["CREATE TABLE t (id INTEGER PRIMARY KEY)"]
model: { table: t }
chain:
  - name: c
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	const base = `
name: v
description: "validation"
schema: ["CREATE TABLE t (id INTEGER PRIMARY KEY)"]
`

	testCases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nschema: [x]\nmodel: {table: t}\nchains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nschema: [x]\nmodel: {table: t}\nchains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing schema",
			yaml:    "name: n\ndescription: d\nmodel: {table: t}\nchains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: "schema list is required",
		},
		{
			name:    "missing model table",
			yaml:    base + "chains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: "model.table is required",
		},
		{
			name:    "no chains",
			yaml:    base + "model: {table: t}\n",
			wantErr: "chains list is required",
		},
		{
			name:    "fixture without table",
			yaml:    base + "fixtures: [{rows: [{id: 1}]}]\nmodel: {table: t}\nchains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: "fixtures[0]: table is required",
		},
		{
			name:    "bad association kind",
			yaml:    base + "model: {table: t, associations: [{name: a, kind: many_to_many, table: u, foreign_key: t_id}]}\nchains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: `unknown kind "many_to_many"`,
		},
		{
			name:    "unnamed scope",
			yaml:    base + "model: {table: t, scopes: [{conditions: x}]}\nchains: [{name: c, invoke: [{scope: s}]}]\n",
			wantErr: "model.scopes[0]: name is required",
		},
		{
			name:    "unnamed chain",
			yaml:    base + "model: {table: t}\nchains: [{invoke: [{scope: s}]}]\n",
			wantErr: "chains[0]: name is required",
		},
		{
			name:    "duplicate chain",
			yaml:    base + "model: {table: t}\nchains: [{name: c, invoke: [{scope: s}]}, {name: c, invoke: [{scope: s}]}]\n",
			wantErr: `duplicate chain name "c"`,
		},
		{
			name:    "empty chain without error",
			yaml:    base + "model: {table: t}\nchains: [{name: c, invoke: []}]\n",
			wantErr: "invoke list is required unless expect.error is set",
		},
		{
			name:    "step without scope",
			yaml:    base + "model: {table: t}\nchains: [{name: c, invoke: [{args: [1]}]}]\n",
			wantErr: "chains[0].invoke[0]: scope is required",
		},
		{
			name:    "permute too long",
			yaml:    base + "model: {table: t}\nchains: [{name: c, permute: true, invoke: [{scope: a}, {scope: a}, {scope: a}, {scope: a}, {scope: a}, {scope: a}, {scope: a}, {scope: a}]}]\n",
			wantErr: "permute supports at most 7 invocations, got 8",
		},
		{
			name:    "negative count",
			yaml:    base + "model: {table: t}\nchains: [{name: c, invoke: [{scope: s}], expect: {count: -1}}]\n",
			wantErr: "count must be non-negative",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
