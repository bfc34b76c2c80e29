package cmd

import (
	"github.com/spf13/cobra"

	"devstack/internal/reporting"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which services are running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			statuses, err := application.Services().Supervisor().Status(cmd.Context())
			if err != nil {
				return err
			}
			return reporting.StatusSummary(cmd.OutOrStdout(), statuses)
		},
	}
}
