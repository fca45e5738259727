package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/filterchain/internal/chain"
	"github.com/roach88/filterchain/internal/exec"
	"github.com/roach88/filterchain/internal/scope"
	"github.com/roach88/filterchain/internal/store"
)

// Harness executes scenarios against one store.
type Harness struct {
	store  *store.Store
	model  *scope.Model
	runner *exec.Runner
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the exec runner. Logs are discarded
// by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a scenario with a background context.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. The returned error is
// reserved for setup failures (schema, fixtures, model). Chain failures are
// reported in the Result.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	h.runner = exec.NewRunner(st, exec.WithLogger(h.logger))

	if err := h.setup(ctx, scenario); err != nil {
		return nil, err
	}

	result := NewResult()
	for _, c := range scenario.Chains {
		result.AddChain(h.runChain(ctx, c))
	}

	return result, nil
}

func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	if err := h.store.ExecAll(ctx, scenario.Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	for _, f := range scenario.Fixtures {
		for i, row := range f.Rows {
			if _, err := h.store.Insert(ctx, f.Table, row); err != nil {
				return fmt.Errorf("fixture %s[%d]: %w", f.Table, i, err)
			}
		}
	}

	model, err := buildModel(scenario.Model)
	if err != nil {
		return fmt.Errorf("building model: %w", err)
	}
	h.model = model

	return nil
}

func buildModel(spec ModelSpec) (*scope.Model, error) {
	m := scope.NewModel(spec.Table, spec.PrimaryKey)

	for _, a := range spec.Associations {
		err := m.Associate(scope.Association{
			Name:       a.Name,
			Kind:       scope.AssociationKind(a.Kind),
			Table:      a.Table,
			ForeignKey: a.ForeignKey,
			TargetKey:  a.TargetKey,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, s := range spec.Scopes {
		err := m.Define(scope.Definition{
			Name:       s.Name,
			Conditions: s.Conditions,
			Joins:      s.Joins,
			Params:     s.Params,
		})
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (h *Harness) runChain(ctx context.Context, c ChainCase) ChainResult {
	cr := ChainResult{Name: c.Name, Pass: true, IDs: []string{}}
	table, pk := h.model.Table, h.model.PrimaryKey

	filters, err := h.model.Filters(c.invocations()...)
	if err != nil {
		cr.fail("rendering scopes: %v", err)
		return cr
	}

	if sql, err := chain.SelectSQL(table, pk, filters); err == nil {
		cr.SQL = sql
	}

	rows, err := h.runner.Find(ctx, table, pk, filters)
	if err != nil {
		checkExpectedError(&cr, c.Expect.Error, err)
		return cr
	}
	if c.Expect.Error != "" {
		cr.fail("expected error %s, chain succeeded with %d row(s)", c.Expect.Error, len(rows))
		return cr
	}

	cr.IDs = idsOf(rows, pk)

	count, err := h.runner.Count(ctx, table, pk, filters)
	if err != nil {
		cr.fail("count: %v", err)
		return cr
	}
	cr.Count = count

	if count != int64(len(rows)) {
		cr.fail("count %d does not match %d returned row(s)", count, len(rows))
	}
	if c.Expect.Count != nil && *c.Expect.Count != count {
		cr.fail("expected count %d, got %d", *c.Expect.Count, count)
	}
	if c.Expect.Rows != nil {
		for _, msg := range matchRows(c.Expect.Rows, rows) {
			cr.fail("%s", msg)
		}
	}
	if c.Permute {
		h.checkPermutations(ctx, &cr, filters)
	}

	return cr
}

// checkPermutations runs every other ordering of filters and requires the
// same ids as the original order.
func (h *Harness) checkPermutations(ctx context.Context, cr *ChainResult, filters []chain.FilterSpec) {
	table, pk := h.model.Table, h.model.PrimaryKey

	for _, order := range permutations(len(filters)) {
		permuted := make([]chain.FilterSpec, len(order))
		names := make([]string, len(order))
		for i, idx := range order {
			permuted[i] = filters[idx]
			names[i] = filters[idx].Name
		}

		rows, err := h.runner.Find(ctx, table, pk, permuted)
		if err != nil {
			cr.fail("permutation %v: %v", names, err)
			continue
		}
		if ids := idsOf(rows, pk); !slices.Equal(ids, cr.IDs) {
			cr.fail("permutation %v returned ids %v, want %v", names, ids, cr.IDs)
		}
	}
}

func checkExpectedError(cr *ChainResult, want string, err error) {
	if want == "" {
		cr.fail("%v", err)
		return
	}
	if got := errorCode(err); got != want {
		cr.fail("expected error %s, got %s: %v", want, got, err)
	}
}

// errorCode maps an execution error to its chain error code.
func errorCode(err error) string {
	var execErr *exec.ExecError
	if errors.As(err, &execErr) {
		return string(execErr.Code())
	}
	var chainErr *chain.Error
	if errors.As(err, &chainErr) {
		return string(chainErr.Code)
	}
	return "UNKNOWN"
}
