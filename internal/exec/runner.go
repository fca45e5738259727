// Package exec runs compiled filter chains against an execution engine.
package exec

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/filterchain/internal/chain"
)

const tracerName = "github.com/roach88/filterchain/internal/exec"

// Engine executes a JOIN fragment against a table.
// store.Store and gormexec.Engine implement it.
type Engine interface {
	Find(ctx context.Context, table, pk, fragment string) ([]map[string]any, error)
	Count(ctx context.Context, table, fragment string) (int64, error)
}

// Runner compiles filter chains and executes them on an Engine.
// Safe for concurrent use if the Engine is.
type Runner struct {
	engine Engine
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer sets the tracer. Defaults to the global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// NewRunner creates a Runner for engine.
func NewRunner(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fingerprint returns a short stable hash of a SQL string for log correlation.
func Fingerprint(sql string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(sql))
}

// Find returns the rows of table satisfying every filter, in primary key order.
// Compile errors are returned unchanged; database errors as *ExecError.
func (r *Runner) Find(ctx context.Context, table, pk string, filters []chain.FilterSpec) ([]map[string]any, error) {
	fragment, err := chain.Compile(table, pk, filters)
	if err != nil {
		return nil, err
	}

	ctx, span, hash := r.start(ctx, "find", table, filters, fragment)
	defer span.End()

	rows, err := r.engine.Find(ctx, table, pk, fragment)
	if err != nil {
		return nil, r.fail(span, "find", table, len(filters), hash, err)
	}

	span.SetAttributes(attribute.Int("filterchain.rows", len(rows)))
	r.logger.Debug("filter chain executed",
		"op", "find",
		"table", table,
		"filters", len(filters),
		"sql_hash", hash,
		"rows", len(rows))

	return rows, nil
}

// Count returns the number of rows of table satisfying every filter.
func (r *Runner) Count(ctx context.Context, table, pk string, filters []chain.FilterSpec) (int64, error) {
	fragment, err := chain.Compile(table, pk, filters)
	if err != nil {
		return 0, err
	}

	ctx, span, hash := r.start(ctx, "count", table, filters, fragment)
	defer span.End()

	n, err := r.engine.Count(ctx, table, fragment)
	if err != nil {
		return 0, r.fail(span, "count", table, len(filters), hash, err)
	}

	span.SetAttributes(attribute.Int64("filterchain.count", n))
	r.logger.Debug("filter chain executed",
		"op", "count",
		"table", table,
		"filters", len(filters),
		"sql_hash", hash,
		"count", n)

	return n, nil
}

// start opens the span and reports rewrite hazards before execution.
func (r *Runner) start(ctx context.Context, op, table string, filters []chain.FilterSpec, fragment string) (context.Context, trace.Span, string) {
	hash := Fingerprint(fragment)
	ctx, span := r.tracer.Start(ctx, "filterchain."+op, trace.WithAttributes(
		attribute.String("db.sql.table", table),
		attribute.Int("filterchain.filters", len(filters)),
		attribute.String("filterchain.sql_hash", hash),
	))

	for _, w := range chain.Audit(table, filters) {
		r.logger.Warn("ambiguous table rewrite",
			"table", table,
			"filter", w.Filter,
			"position", w.Position,
			"kind", string(w.Kind),
			"detail", w.Message,
			"sql_hash", hash)
	}

	return ctx, span, hash
}

func (r *Runner) fail(span trace.Span, op, table string, count int, hash string, err error) error {
	execErr := &ExecError{Op: op, Table: table, FilterCount: count, SQLHash: hash, Err: err}
	span.RecordError(execErr)
	span.SetStatus(codes.Error, string(execErr.Code()))
	r.logger.Error("filter chain execution failed",
		"op", op,
		"table", table,
		"filters", count,
		"sql_hash", hash,
		"error", err)
	return execErr
}
