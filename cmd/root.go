package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"devstack/internal/app"
	"devstack/internal/color"
	"devstack/pkg/logging"

	"github.com/spf13/cobra"
)

var (
	debugFlag     bool
	configDirFlag string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "devstack",
	Short: "Boot, stop and sync a local multi-service development stack",
	Long: `devstack starts the services of a local development stack on free ports,
publishes one shared runtime configuration to all of them, and stops them
again, even after the state of a previous run was lost.

It also keeps the project working copy in sync with its remote repository.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. a service failed to start)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := app.LogLevel(debugFlag)
		logging.InitForCLI(level, os.Stderr)
		color.Setup()
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "devstack version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		stop()
		os.Exit(1)
	}
}

// newApplication loads configuration according to the global flags.
func newApplication() (*app.Application, error) {
	return app.NewApplication(app.NewConfig(debugFlag, configDirFlag))
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Directory containing config.yaml (skips the user and project layers)")

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
