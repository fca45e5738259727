package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// SQLSnapshot renders the compiled statements of a result, one block per
// chain:
//
//	-- <chain name>
//	<SELECT statement>
//
// Chains that failed to compile are rendered as "-- <name>: no sql".
func SQLSnapshot(result *Result) []byte {
	var b strings.Builder
	for i, c := range result.Chains {
		if i > 0 {
			b.WriteString("\n")
		}
		if c.SQL == "" {
			b.WriteString("-- " + c.Name + ": no sql\n")
			continue
		}
		b.WriteString("-- " + c.Name + "\n")
		b.WriteString(c.SQL + "\n")
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario, fails t on any chain error, and
// compares the compiled SQL against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	for _, e := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, e)
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the SQL snapshot of result against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, SQLSnapshot(result))
}
