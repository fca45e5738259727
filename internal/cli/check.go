package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/filterchain/internal/chain"
	"github.com/roach88/filterchain/internal/chainfile"
)

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Table    string          `json:"table"`
	Filters  int             `json:"filters"`
	Warnings []chain.Warning `json:"warnings"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <chain-file>",
		Short: "Report ambiguous table rewrites in a chain file",
		Long: `Check a chain definition for joins and conditions where the
table-to-alias rewrite is ambiguous: the table name embedded in a longer
identifier, repeated occurrences, joins that never reference the table,
and conditions that name the table.

Exit codes:
  0 - No warnings
  1 - One or more warnings
  2 - Command error (missing or invalid chain file)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	file, err := chainfile.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, chainfile.ErrorCode(err), err.Error(), nil)
	}
	if _, err := file.Compile(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCompileFailed, err.Error(), nil)
	}

	warnings := file.Audit()
	if warnings == nil {
		warnings = []chain.Warning{}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(CheckResult{Table: file.Table, Filters: len(file.Filters), Warnings: warnings}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if len(warnings) == 0 {
			fmt.Fprintf(w, "✓ %s: %d filter(s), no rewrite warnings\n", file.Table, len(file.Filters))
		} else {
			fmt.Fprintf(w, "✗ %s: %d rewrite warning(s)\n", file.Table, len(warnings))
			for _, warning := range warnings {
				fmt.Fprintf(w, "  %s\n", warning)
			}
		}
	}

	if len(warnings) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d rewrite warning(s)", ErrCodeWarnings, len(warnings)))
	}
	return nil
}
