package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/filterchain/internal/chain"
	"github.com/roach88/filterchain/internal/chainfile"
	"github.com/roach88/filterchain/internal/exec"
	"github.com/roach88/filterchain/internal/logging"
)

// Compile output modes.
const (
	ModeFragment = "fragment"
	ModeSelect   = "select"
	ModeCount    = "count"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Select bool // print the full SELECT statement
	Count  bool // print the COUNT statement
}

// CompileResult is the JSON payload of the compile command.
type CompileResult struct {
	Table      string          `json:"table"`
	PrimaryKey string          `json:"primary_key"`
	Filters    int             `json:"filters"`
	Mode       string          `json:"mode"`
	SQL        string          `json:"sql"`
	SQLHash    string          `json:"sql_hash"`
	Warnings   []chain.Warning `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <chain-file>",
		Short: "Compile a chain file to SQL",
		Long: `Compile a chain definition (.yaml, .yml or .cue) into SQL.

By default the join fragment is printed. Use --select for a complete
statement returning the filtered rows in primary key order, or --count
for a statement counting them. Rewrite warnings are printed to stderr.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Select, "select", false, "print the full SELECT statement")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the COUNT statement")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Select && opts.Count {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--select and --count are mutually exclusive", nil)
	}

	file, err := chainfile.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, chainfile.ErrorCode(err), err.Error(), nil)
	}
	formatter.VerboseLog("Loaded %d filter(s) for table %s from %s", len(file.Filters), file.Table, path)

	mode := ModeFragment
	compile := chain.Compile
	switch {
	case opts.Select:
		mode, compile = ModeSelect, chain.SelectSQL
	case opts.Count:
		mode, compile = ModeCount, chain.CountSQL
	}

	sql, err := compile(file.Table, file.PrimaryKey, file.Filters)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompileFailed, err.Error(), nil)
	}

	warnings := file.Audit()
	formatter.Warnings(warnings)

	hash := exec.Fingerprint(sql)
	logging.FromContext(cmd.Context()).Debug("chain compiled",
		"table", file.Table,
		"filters", len(file.Filters),
		"mode", mode,
		"sql_hash", hash)

	if formatter.Format == "json" {
		return formatter.Success(CompileResult{
			Table:      file.Table,
			PrimaryKey: file.PrimaryKey,
			Filters:    len(file.Filters),
			Mode:       mode,
			SQL:        sql,
			SQLHash:    hash,
			Warnings:   warnings,
		})
	}

	return formatter.Success(sql)
}
