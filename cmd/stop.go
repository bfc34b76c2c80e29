package cmd

import (
	"github.com/spf13/cobra"

	"devstack/internal/reporting"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop every service and free their ports",
		Long: `Stops every service recorded in the process registry, then sweeps all
configured and recorded ports and terminates whatever still listens on them.

The sweep also runs when the registry is empty or was deleted, so services
left over from a crashed run are stopped as well.`,
		Args: cobra.NoArgs,
		RunE: runStop,
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}

	svc := application.Services()
	report := svc.ShutdownCoordinator().ShutdownAll(cmd.Context(), svc.ShutdownTargets())
	if err := reporting.StopSummary(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if !report.OK() {
		return report.Err()
	}
	return nil
}
