package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteTableReference(t *testing.T) {
	testCases := []struct {
		name     string
		fragment string
		table    string
		want     string
	}{
		{
			name:     "single reference",
			fragment: "INNER JOIN my_scores ON my_scores.my_model_id = my_models.id",
			table:    "my_models",
			want:     "INNER JOIN my_scores ON my_scores.my_model_id = tmp0.id",
		},
		{
			name:     "only first occurrence",
			fragment: "INNER JOIN tags ON tags.a = my_models.id AND tags.b = my_models.id",
			table:    "my_models",
			want:     "INNER JOIN tags ON tags.a = tmp0.id AND tags.b = my_models.id",
		},
		{
			name:     "embedded match is replaced literally",
			fragment: "INNER JOIN my_models_tags ON my_models_tags.model_id = models.id",
			table:    "models",
			want:     "INNER JOIN my_tmp0_tags ON my_models_tags.model_id = models.id",
		},
		{
			name:     "no reference",
			fragment: "INNER JOIN my_scores ON my_scores.x = 1",
			table:    "my_models",
			want:     "INNER JOIN my_scores ON my_scores.x = 1",
		},
		{
			name:     "empty table leaves fragment alone",
			fragment: "INNER JOIN a ON a.id = b.id",
			table:    "",
			want:     "INNER JOIN a ON a.id = b.id",
		},
		{
			name:     "unicode compositions match",
			fragment: "INNER JOIN x ON x.id = cafe\u0301.id",
			table:    "caf\u00e9",
			want:     "INNER JOIN x ON x.id = tmp0.id",
		},
		{
			name:     "decomposed literal is kept as written",
			fragment: "INNER JOIN tags ON tags.owner_id = my_models.id AND tags.label = 'cafe\u0301'",
			table:    "my_models",
			want:     "INNER JOIN tags ON tags.owner_id = tmp0.id AND tags.label = 'cafe\u0301'",
		},
		{
			name:     "decomposed literal without reference is untouched",
			fragment: "INNER JOIN tags ON tags.label = 'cafe\u0301'",
			table:    "my_models",
			want:     "INNER JOIN tags ON tags.label = 'cafe\u0301'",
		},
		{
			name:     "composed table inside decomposed fragment keeps surroundings",
			fragment: "INNER JOIN t ON t.k = 'e\u0301' AND t.id = cafe\u0301.id",
			table:    "caf\u00e9",
			want:     "INNER JOIN t ON t.k = 'e\u0301' AND t.id = tmp0.id",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RewriteTableReference(tc.fragment, tc.table, "tmp0"))
		})
	}
}

func TestAudit_CleanChain(t *testing.T) {
	warnings := Audit("my_models", []FilterSpec{bobs, edu, scoreGreaterThanOne})
	assert.Empty(t, warnings)
}

func TestAudit_FirstFilterIgnored(t *testing.T) {
	first := FilterSpec{Join: "INNER JOIN a ON a.x = my_models.id AND a.y = my_models.id"}
	assert.Empty(t, Audit("my_models", []FilterSpec{first}))
}

func TestAudit_EmbeddedAndMultiple(t *testing.T) {
	tagged := FilterSpec{
		Name: "tagged",
		Join: "INNER JOIN my_models_tags ON my_models_tags.model_id = models.id",
	}

	warnings := Audit("models", []FilterSpec{{Condition: "1 = 1"}, tagged})
	require.Len(t, warnings, 2)

	assert.Equal(t, WarnEmbedded, warnings[0].Kind)
	assert.Equal(t, "tagged", warnings[0].Filter)
	assert.Equal(t, 1, warnings[0].Position)

	assert.Equal(t, WarnMultiple, warnings[1].Kind)
	assert.Contains(t, warnings[1].Message, "3 times")
	assert.Contains(t, warnings[1].Message, "tmp0")
}

func TestAudit_UnreferencedJoin(t *testing.T) {
	loose := FilterSpec{Join: "INNER JOIN my_scores ON my_scores.score > 0"}

	warnings := Audit("my_models", []FilterSpec{bobs, edu, loose})
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnUnreferencedJoin, warnings[0].Kind)
	assert.Equal(t, "#2", warnings[0].Filter)
	assert.Contains(t, warnings[0].Message, "tmp1")
}

func TestAudit_ConditionReference(t *testing.T) {
	qualified := FilterSpec{Name: "qualified", Condition: "my_models.name = 'Bob'"}

	warnings := Audit("my_models", []FilterSpec{edu, qualified})
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnConditionReference, warnings[0].Kind)
	assert.Contains(t, warnings[0].String(), "condition_reference [qualified at 1]")
}

func TestAudit_ConditionReferenceAfterEmbeddedMatch(t *testing.T) {
	archived := FilterSpec{Name: "archived", Condition: "my_models_archive_flag = 0 AND my_models.name = 'x'"}

	warnings := Audit("my_models", []FilterSpec{edu, archived})
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnConditionReference, warnings[0].Kind)
	assert.Equal(t, "archived", warnings[0].Filter)
}

func TestAudit_ConditionOnlyEmbedded(t *testing.T) {
	flagged := FilterSpec{Condition: "my_models_archive_flag = 0"}
	assert.Empty(t, Audit("my_models", []FilterSpec{edu, flagged}))
}

func TestAudit_DecomposedJoin(t *testing.T) {
	decomposed := FilterSpec{Name: "decomposed", Join: "INNER JOIN x ON x.id = cafe\u0301.id"}

	assert.Empty(t, Audit("caf\u00e9", []FilterSpec{{Condition: "1 = 1"}, decomposed}))
}

func TestAudit_EmptyTable(t *testing.T) {
	assert.Nil(t, Audit("", []FilterSpec{bobs, scoreGreaterThanOne}))
}
