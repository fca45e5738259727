package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/filterchain/internal/chainfile"
	"github.com/roach88/filterchain/internal/config"
	"github.com/roach88/filterchain/internal/exec"
	"github.com/roach88/filterchain/internal/gormexec"
	"github.com/roach88/filterchain/internal/logging"
	"github.com/roach88/filterchain/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Count bool // print the row count instead of rows
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Table string           `json:"table"`
	Count int64            `json:"count"`
	Rows  []map[string]any `json:"rows,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <chain-file>",
		Short: "Execute a chain file against a database",
		Long: `Execute a chain definition against the configured database and
print the matching rows in primary key order, or their count.

The database comes from --db-driver and --db-dsn, FILTERCHAIN_DB_DRIVER and
FILTERCHAIN_DB_DSN, or the config file. Drivers:
  sqlite       database/sql over SQLite (dsn is a file path)
  gorm-sqlite  GORM over SQLite (dsn is a file path)
  postgres     GORM over PostgreSQL (dsn is a connection string)

Examples:
  filterchain run chain.yaml --db-dsn app.db
  filterchain run chain.cue --db-driver postgres --db-dsn "host=localhost dbname=app" --count`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChain(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matching rows")
	cmd.Flags().String("db-driver", config.DriverSQLite, "database driver: "+strings.Join(config.Drivers, ", "))
	cmd.Flags().String("db-dsn", "", "database path or connection string")

	return cmd
}

func runChain(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	runID := uuid.Must(uuid.NewV7()).String()
	ctx, logger := logging.With(ctx, "run_id", runID)

	formatter := newFormatter(opts.RootOptions, cmd)
	formatter.RunID = runID

	file, err := chainfile.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, chainfile.ErrorCode(err), err.Error(), nil)
	}
	formatter.Warnings(file.Audit())

	engine, closeEngine, err := openEngine(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer closeEngine()

	logger.Info("running filter chain",
		"table", file.Table,
		"filters", len(file.Filters),
		"driver", cfg.DBDriver)

	runner := exec.NewRunner(engine, exec.WithLogger(logger))
	result := RunResult{Table: file.Table}

	if opts.Count {
		result.Count, err = runner.Count(ctx, file.Table, file.PrimaryKey, file.Filters)
	} else {
		result.Rows, err = runner.Find(ctx, file.Table, file.PrimaryKey, file.Filters)
		result.Count = int64(len(result.Rows))
	}
	if err != nil {
		if exec.IsExecError(err) {
			return formatter.Fail(ExitFailure, ErrCodeExecFailed, err.Error(), nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeCompileFailed, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if opts.Count {
		return formatter.Success(result.Count)
	}
	for _, row := range result.Rows {
		fmt.Fprintln(formatter.Writer, formatRow(row))
	}
	fmt.Fprintf(formatter.Writer, "%d row(s)\n", result.Count)
	return nil
}

// openEngine opens the execution engine selected by cfg.
func openEngine(cfg *config.Config) (exec.Engine, func() error, error) {
	if cfg.DBDSN == "" {
		return nil, nil, fmt.Errorf("no database configured (set --db-dsn or FILTERCHAIN_DB_DSN)")
	}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		if err := requireFile(cfg.DBDSN); err != nil {
			return nil, nil, err
		}
		st, err := store.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.DriverGorm:
		if err := requireFile(cfg.DBDSN); err != nil {
			return nil, nil, err
		}
		eng, err := gormexec.Open(gormexec.DriverSQLite, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return eng, eng.Close, nil
	case config.DriverPostgres:
		eng, err := gormexec.Open(gormexec.DriverPostgres, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return eng, eng.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

// requireFile rejects sqlite paths that do not exist, since opening one
// would silently create an empty database.
func requireFile(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("database not found: %s", path)
	}
	return nil
}

// formatRow renders a row as space-separated column=value pairs in column
// order.
func formatRow(row map[string]any) string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	parts := make([]string, len(cols))
	for i, c := range cols {
		v := row[c]
		if v == nil {
			parts[i] = c + "=NULL"
			continue
		}
		parts[i] = fmt.Sprintf("%s=%v", c, v)
	}
	return strings.Join(parts, " ")
}
