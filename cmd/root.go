/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/hookrun/pkg/buildinfo"
	"github.com/fulmenhq/hookrun/pkg/exitcode"
	"github.com/fulmenhq/hookrun/pkg/logger"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hookrun",
		Short: "Fast, language-aware git hook runner",
		Long: `Hookrun executes the checks and fixers declared in .hookrun.yaml against
the files a commit actually touches. Fixers run first and their output is
re-verified before the run can succeed.

Examples:
   hookrun run                    # Run pre-commit hooks on staged files
   hookrun run --all-files        # Run against every tracked file
   hookrun run --stage pre-push   # Run a different stage
   hookrun validate               # Check the manifest without running anything
   hookrun clean                  # Drop cached hook environments`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringP("manifest", "m", "", "Path to the hook manifest (default .hookrun.yaml)")

	cmd.Version = buildinfo.Resolve()
	cmd.SetVersionTemplate("hookrun {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// Called from init() for production; tests call it on isolated trees.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newCleanCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the CLI. Called by main.main(); run failures carry their
// exit code out through exitError so the process-level contract holds:
// 0 success, 1 hook failure, 2 usage or configuration error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitcode.ConfigError)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// exitError carries a specific process exit code up through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "run failed"
}

func (e *exitError) Unwrap() error { return e.err }

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "hookrun",
	}

	if err := logger.Initialize(config); err != nil {
		if _, writeErr := os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n"); writeErr != nil {
			_ = writeErr
		}
		os.Exit(exitcode.ConfigError)
	}
}
