// Package harness runs filter chain scenarios against a real SQLite store.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema:
//	  - CREATE TABLE my_models (id INTEGER PRIMARY KEY, name TEXT)
//	fixtures:
//	  - table: my_models
//	    rows:
//	      - { name: Bob }
//	model:
//	  table: my_models
//	  primary_key: id
//	  associations:
//	    - { name: my_score, kind: has_one, table: my_scores, foreign_key: my_model_id }
//	  scopes:
//	    - name: bobs
//	      conditions: "name = 'Bob'"
//	    - name: score_greater_than
//	      joins: [my_score]
//	      conditions: "my_scores.score > ?"
//	      params: 1
//	chains:
//	  - name: high_bobs
//	    invoke:
//	      - scope: bobs
//	      - scope: score_greater_than
//	        args: [1.0]
//	    permute: true
//	    expect:
//	      count: 1
//	      rows:
//	        - { name: Bob }
//
// # Checks
//
// Every chain is compiled through the model's scopes and executed with the
// exec runner. The harness then verifies:
//
//   - count matches the number of returned rows
//   - expected rows match the returned rows in primary-key order, comparing
//     only the listed columns
//   - expect.count, when given
//   - with permute set, every ordering of the chain returns the same ids
//   - expect.error, when given, names the error code the chain must fail with
//
// Each scenario runs in a fresh in-memory database so scenarios are
// isolated and repeatable.
//
// # Golden SQL
//
// RunWithGolden snapshots the SELECT statement of every chain with goldie.
// Regenerate snapshots with:
//
//	go test ./internal/harness -update
package harness
