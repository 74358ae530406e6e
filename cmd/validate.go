/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fulmenhq/hookrun/internal/registry"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [manifest]",
		Short: "Validate the hook manifest without running anything",
		Long: `Validate loads .hookrun.yaml (or the given path), checks it against
the manifest schema, and reports the declared hooks per stage. Exit
code 2 means the manifest is unusable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var reg *registry.Registry
	var err error
	if len(args) == 1 {
		reg, err = registry.Load(args[0])
	} else {
		reg, err = loadManifest(cmd)
	}
	if err != nil {
		return configFailure(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Manifest OK: %d hook(s)\n", len(reg.Hooks))
	for i := range reg.Hooks {
		h := &reg.Hooks[i]
		stages := make([]string, len(h.Stages))
		for j, s := range h.Stages {
			stages[j] = string(s)
		}
		fmt.Fprintf(out, "  %-24s %-8s stages=%v", h.ID, h.Language, stages)
		if h.Fixer {
			fmt.Fprint(out, " fixer")
		}
		if h.AlwaysRun {
			fmt.Fprint(out, " always_run")
		}
		fmt.Fprintln(out)
	}
	if reg.FailFast {
		fmt.Fprintln(out, "fail_fast enabled: the first failure skips the rest of the run")
	}
	return nil
}
