// Package cli implements the cobra command tree for filterchain.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/filterchain/internal/config"
	"github.com/roach88/filterchain/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	err := NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "filterchain: %v\n", err)
	}
	return GetExitCode(err)
}

// NewRootCommand creates the root command for the filterchain CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "filterchain",
		Short: "Combine named SQL filters into one nested-subquery join",
		Long: `filterchain compiles an ordered list of filters (optional JOIN plus
optional WHERE condition) into a single derived-table join fragment.
Each filter is applied as its own subquery layer, so filters that would
conflict when merged into one WHERE clause compose safely.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load(cmd, opts.ConfigFile)
			if err != nil {
				return WrapExitError(ExitCommandError, "loading configuration", err)
			}

			logger := logging.Install(cmd.ErrOrStderr(), cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.String("dbDriver", cfg.DBDriver),
				slog.String("dbDsn", cfg.RedactedDSN()),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default: .filterchain.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: "+strings.Join(config.LogLevels, ", "))
	pf.String("log-format", config.LogFormatText, "log format: "+strings.Join(config.LogFormats, ", "))
	pf.BoolP("quiet", "q", false, "only log errors")

	// Flag parsing errors are command errors.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(
		NewCompileCommand(opts),
		NewCheckCommand(opts),
		NewRunCommand(opts),
		NewTestCommand(opts),
	)

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newFormatter builds the formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Warnings go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}
