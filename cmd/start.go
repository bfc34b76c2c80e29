package cmd

import (
	"github.com/spf13/cobra"

	"devstack/internal/reporting"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start every configured service",
		Long: `Starts every configured service on its preferred port, or on the next free
port above it, and writes the same runtime configuration into each service's
config paths before launching it.

Services that are already running keep their port and are left alone.`,
		Args: cobra.NoArgs,
		RunE: runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}

	report, err := application.Services().Supervisor().Start(cmd.Context())
	if err != nil {
		return err
	}
	if err := reporting.StartSummary(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if !report.OK() {
		return report.Err()
	}
	return nil
}
