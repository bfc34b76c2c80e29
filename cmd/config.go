package cmd

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"devstack/internal/supervisor"
	"devstack/pkg/logging"
)

var clipboardWriteAll = clipboard.WriteAll

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the devstack configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var copyToClipboard bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the runtime configuration the next start would publish",
		Long: `Resolves ports the same way "devstack start" does, without launching
anything, and prints the resulting runtime configuration document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}
			plan := application.Services().Supervisor().Plan(cmd.Context())
			data, err := plan.Document.Marshal()
			if err != nil {
				return fmt.Errorf("failed to encode runtime configuration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			for _, r := range plan.Services {
				if r.Err != nil && !errors.Is(r.Err, supervisor.ErrAlreadyRunning) {
					logging.Warn("Config", "%s: %v", r.Service, r.Err)
				}
			}

			if copyToClipboard {
				if err := clipboardWriteAll(string(data)); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				logging.Info("Config", "Runtime configuration copied to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Also copy the document to the clipboard")
	return cmd
}
