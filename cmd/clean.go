/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/hookrun/internal/envmgr"
	"github.com/fulmenhq/hookrun/pkg/config"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove cached hook environments",
		Long: `Clean deletes the environment cache. The next run rebuilds whatever
environments it needs; nothing else is touched.`,
		Args: cobra.NoArgs,
		RunE: runClean,
	}
}

func runClean(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.LoadConfig()
	if err != nil {
		return configFailure(err)
	}

	if err := envmgr.NewManager(cfg.Cache.Dir).Clean(); err != nil {
		return configFailure(fmt.Errorf("failed to remove environment cache: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed environment cache at %s\n", cfg.Cache.Dir)
	return nil
}
