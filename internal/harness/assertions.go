package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/filterchain/internal/store"
)

// matchRows compares expected against actual positionally. Each expected row
// is a subset match: only its keys are compared.
func matchRows(expected []map[string]any, actual []store.Row) []string {
	var errs []string

	if len(expected) != len(actual) {
		errs = append(errs, fmt.Sprintf("expected %d row(s), got %d", len(expected), len(actual)))
	}

	n := min(len(expected), len(actual))
	for i := 0; i < n; i++ {
		keys := make([]string, 0, len(expected[i]))
		for k := range expected[i] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			got, ok := actual[i][k]
			if !ok {
				errs = append(errs, fmt.Sprintf("row %d: column %q not in result", i, k))
				continue
			}
			if !valuesEqual(expected[i][k], got) {
				errs = append(errs, fmt.Sprintf("row %d: column %q: expected %v, got %v", i, k, expected[i][k], got))
			}
		}
	}

	return errs
}

// valuesEqual compares a YAML value with a database value. Numbers compare
// by value regardless of their Go type.
func valuesEqual(want, got any) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}

	wf, wNum := toFloat(want)
	gf, gNum := toFloat(got)
	if wNum || gNum {
		return wNum && gNum && wf == gf
	}

	return fmt.Sprint(want) == fmt.Sprint(got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// idsOf renders the pk column of each row.
func idsOf(rows []store.Row, pk string) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = fmt.Sprint(r[pk])
	}
	return ids
}

// permutations returns every ordering of 0..n-1 except the identity, in
// Heap's algorithm order.
func permutations(n int) [][]int {
	if n < 2 {
		return nil
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	var out [][]int
	c := make([]int, n)
	for i := 1; i < n; {
		if c[i] < i {
			if i%2 == 0 {
				perm[0], perm[i] = perm[i], perm[0]
			} else {
				perm[c[i]], perm[i] = perm[i], perm[c[i]]
			}
			out = append(out, append([]int(nil), perm...))
			c[i]++
			i = 1
		} else {
			c[i] = 0
			i++
		}
	}
	return out
}
