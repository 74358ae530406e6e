/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/hookrun/internal/engine"
	"github.com/fulmenhq/hookrun/internal/envmgr"
	"github.com/fulmenhq/hookrun/internal/executor"
	"github.com/fulmenhq/hookrun/internal/gitctx"
	"github.com/fulmenhq/hookrun/internal/registry"
	"github.com/fulmenhq/hookrun/pkg/buildinfo"
	"github.com/fulmenhq/hookrun/pkg/config"
	"github.com/fulmenhq/hookrun/pkg/exitcode"
	"github.com/fulmenhq/hookrun/pkg/ignore"
	"github.com/fulmenhq/hookrun/pkg/logger"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run hooks for a stage",
		Long: `Run executes every hook declared for the stage against the selected
files. By default that is the pre-commit stage against staged files; use
--all-files, --files, or --ref to pick a different slice of the tree.

Set SKIP=hook-id,hook-id to skip specific hooks for one run.`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}

	cmd.Flags().String("stage", string(registry.StagePreCommit), "Stage to run (pre-commit|pre-push|commit-msg|post-checkout|post-commit|manual)")
	cmd.Flags().BoolP("all-files", "a", false, "Run against all tracked files")
	cmd.Flags().StringSlice("files", nil, "Run against an explicit file list")
	cmd.Flags().String("ref", "", "Run against files changed since this git ref")
	cmd.Flags().StringP("output", "o", "pretty", "Report format (pretty|json)")
	cmd.Flags().Duration("timeout", 0, "Per-hook timeout (overrides settings)")
	cmd.Flags().IntP("jobs", "j", 0, "Worker count (overrides settings)")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	output, _ := cmd.Flags().GetString("output")
	if output != "pretty" && output != "json" {
		return configFailure(fmt.Errorf("unknown output format %q", output))
	}

	stageName, _ := cmd.Flags().GetString("stage")
	stage, err := registry.ParseStage(stageName)
	if err != nil {
		return configFailure(err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return configFailure(err)
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Run.Timeout = timeout
	}
	if jobs, _ := cmd.Flags().GetInt("jobs"); jobs > 0 {
		cfg.Run.Jobs = jobs
	}

	reg, err := loadManifest(cmd)
	if err != nil {
		return configFailure(err)
	}

	dir, err := os.Getwd()
	if err != nil {
		return configFailure(err)
	}
	matcher, err := ignore.NewMatcher(dir)
	if err != nil {
		return configFailure(err)
	}

	eng := engine.New(
		reg,
		gitctx.NewSelector(dir, matcher),
		envmgr.NewManager(cfg.Cache.Dir),
		executor.NewRunner(dir, cfg.Run.Timeout),
		cfg.Run,
	)

	// Ctrl-C cancels the run; hooks already finished keep their results
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{
		Stage:   stage,
		Scope:   scopeFromFlags(cmd),
		Version: buildinfo.Resolve(),
	}

	start := time.Now()
	rpt, err := eng.Run(ctx, opts)
	if err != nil {
		// the only fatal run error is an unusable repository
		return configFailure(err)
	}
	logger.Debug("run finished", logger.Duration("elapsed", time.Since(start)))

	out := cmd.OutOrStdout()
	if output == "json" {
		if err := rpt.RenderJSON(out); err != nil {
			return configFailure(err)
		}
	} else {
		noColor, _ := cmd.Flags().GetBool("no-color")
		rpt.RenderPretty(out, !noColor)
	}

	if code := rpt.ExitCode(); code != exitcode.Success {
		cmd.SilenceErrors = true
		return &exitError{code: code}
	}
	return nil
}

// scopeFromFlags resolves file selection precedence: explicit files,
// then --all-files, then --ref, then the staged default.
func scopeFromFlags(cmd *cobra.Command) gitctx.Scope {
	if files, _ := cmd.Flags().GetStringSlice("files"); len(files) > 0 {
		return gitctx.Scope{Kind: gitctx.ScopeExplicit, Files: files}
	}
	if all, _ := cmd.Flags().GetBool("all-files"); all {
		return gitctx.Scope{Kind: gitctx.ScopeAllTracked}
	}
	if ref, _ := cmd.Flags().GetString("ref"); ref != "" {
		return gitctx.Scope{Kind: gitctx.ScopeChangedSince, Ref: ref}
	}
	return gitctx.Scope{Kind: gitctx.ScopeStaged}
}

// loadManifest loads and validates the hook manifest, honoring the
// persistent --manifest override.
func loadManifest(cmd *cobra.Command) (*registry.Registry, error) {
	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		path = registry.DefaultManifestName
	}
	return registry.Load(path)
}

// configFailure wraps a pre-execution error with the configuration exit
// code.
func configFailure(err error) error {
	return &exitError{code: exitcode.ConfigError, err: err}
}
