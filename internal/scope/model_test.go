package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterchain/internal/chain"
)

// newPeopleModel mirrors the my_models/my_scores fixture.
func newPeopleModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel("my_models", "")
	require.NoError(t, m.HasOne("my_score", "my_scores", "my_model_id"))
	require.NoError(t, m.Define(Definition{Name: "bobs", Conditions: "name = 'Bob'"}))
	require.NoError(t, m.Define(Definition{Name: "edu_emails", Conditions: "email REGEXP '(?i).edu'"}))
	require.NoError(t, m.Define(Definition{Name: "berkeley", Conditions: "email REGEXP '(?i)berkeley'"}))
	require.NoError(t, m.Define(Definition{
		Name:       "score_greater_than",
		Joins:      []string{"my_score"},
		Conditions: "my_scores.score > ?",
		Params:     1,
	}))
	return m
}

func TestNewModel_DefaultPrimaryKey(t *testing.T) {
	assert.Equal(t, "id", NewModel("t", "").PrimaryKey)
	assert.Equal(t, "uid", NewModel("t", "uid").PrimaryKey)
}

func TestAssociation_JoinSQL(t *testing.T) {
	hasOne := Association{Name: "my_score", Kind: HasOne, Table: "my_scores", ForeignKey: "my_model_id"}
	assert.Equal(t, "INNER JOIN my_scores ON my_scores.my_model_id = my_models.id", hasOne.JoinSQL("my_models", "id"))

	belongsTo := Association{Name: "owner", Kind: BelongsTo, Table: "users", ForeignKey: "owner_id"}
	assert.Equal(t, "INNER JOIN users ON users.id = my_models.owner_id", belongsTo.JoinSQL("my_models", "id"))

	belongsTo.TargetKey = "uid"
	assert.Equal(t, "INNER JOIN users ON users.uid = my_models.owner_id", belongsTo.JoinSQL("my_models", "id"))
}

func TestModel_Scope(t *testing.T) {
	m := newPeopleModel(t)

	f, err := m.Scope("bobs")
	require.NoError(t, err)
	assert.Equal(t, chain.FilterSpec{Name: "bobs", Condition: "name = 'Bob'"}, f)

	f, err = m.Scope("score_greater_than", 1.0)
	require.NoError(t, err)
	assert.Equal(t, chain.FilterSpec{
		Name:      "score_greater_than",
		Join:      "INNER JOIN my_scores ON my_scores.my_model_id = my_models.id",
		Condition: "my_scores.score > 1.0",
	}, f)
}

func TestModel_ScopeErrors(t *testing.T) {
	m := newPeopleModel(t)

	_, err := m.Scope("nope")
	assert.ErrorIs(t, err, ErrUnknownScope)

	_, err = m.Scope("score_greater_than")
	assert.ErrorIs(t, err, ErrBindCount)

	require.NoError(t, m.Define(Definition{Name: "broken", Joins: []string{"missing_assoc"}}))
	_, err = m.Scope("broken")
	assert.ErrorIs(t, err, ErrUnknownAssociation)
}

func TestModel_RawJoins(t *testing.T) {
	m := newPeopleModel(t)
	require.NoError(t, m.Define(Definition{
		Name:  "tagged",
		Joins: []string{"my_score", "INNER JOIN tags ON tags.model_id = my_models.id"},
	}))

	f, err := m.Scope("tagged")
	require.NoError(t, err)
	assert.Equal(t,
		"INNER JOIN my_scores ON my_scores.my_model_id = my_models.id INNER JOIN tags ON tags.model_id = my_models.id",
		f.Join)
	assert.False(t, f.HasCondition())
}

func TestModel_DefineValidation(t *testing.T) {
	m := newPeopleModel(t)

	err := m.Define(Definition{Name: "bobs"})
	assert.ErrorIs(t, err, ErrDuplicateScope)

	err = m.Define(Definition{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	err = m.Define(Definition{Name: "p", Conditions: "a > ?"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	err = m.HasOne("my_score", "my_scores", "my_model_id")
	assert.ErrorIs(t, err, ErrDuplicateAssoc)

	err = m.Associate(Association{Name: "x", Kind: "weird", Table: "t", ForeignKey: "f"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestModel_Scopes(t *testing.T) {
	m := newPeopleModel(t)
	assert.Equal(t, []string{"berkeley", "bobs", "edu_emails", "score_greater_than"}, m.Scopes())
}

func TestModel_FilterChain(t *testing.T) {
	m := newPeopleModel(t)

	got, err := m.FilterChain(Call("bobs"), Call("edu_emails"), Call("score_greater_than", 1.0))
	require.NoError(t, err)

	filters, err := m.Filters(Call("bobs"), Call("edu_emails"), Call("score_greater_than", 1.0))
	require.NoError(t, err)
	want, err := chain.Compile("my_models", "id", filters)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Contains(t, got, "my_scores.my_model_id = tmp1.id")
}

func TestModel_FilterChainEmpty(t *testing.T) {
	m := newPeopleModel(t)

	_, err := m.FilterChain()
	assert.True(t, chain.IsInvalidArgument(err))
}
