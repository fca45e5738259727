// Package scope declares named scopes on a model and renders them into
// chain.FilterSpec values.
//
// A Model is an explicit value: a table, its primary key, its associations and
// its scope definitions. Nothing registers globally. A scope is a reusable
// predicate with an optional join and an optional condition:
//
//	people := scope.NewModel("my_models", "id")
//	_ = people.HasOne("my_score", "my_scores", "my_model_id")
//	_ = people.Define(scope.Definition{Name: "bobs", Conditions: "name = 'Bob'"})
//	_ = people.Define(scope.Definition{
//	    Name:       "score_greater_than",
//	    Joins:      []string{"my_score"},
//	    Conditions: "my_scores.score > ?",
//	    Params:     1,
//	})
//
//	fragment, err := people.FilterChain(scope.Call("bobs"), scope.Call("score_greater_than", 1.0))
//
// Arguments are inlined as SQL literals when a scope is rendered. The
// compiled chain is plain text and carries no bind parameters.
package scope
