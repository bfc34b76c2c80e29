package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"devstack/pkg/logging"
)

// githubRepoSlug is the release repository. Builds set it with
// -ldflags "-X devstack/cmd.githubRepoSlug=owner/repo"; --repository overrides it.
var githubRepoSlug = "devstack/devstack"

// For mocking in tests
var detectLatest = selfupdate.DetectLatest

var updateRepository string

func newSelfUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-update",
		Short: "Update devstack to the latest version",
		Long: `Checks for the latest release of devstack on GitHub and
updates the current binary if a newer version is found.`,
		Args: cobra.NoArgs,
		RunE: runSelfUpdate,
	}
	cmd.Flags().StringVar(&updateRepository, "repository", githubRepoSlug, "GitHub repository (owner/name) to update from")
	return cmd
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	currentVersion := rootCmd.Version
	if currentVersion == "" || currentVersion == "dev" {
		return errors.New("cannot self-update a development version")
	}

	slug := updateRepository
	if slug == "" {
		slug = githubRepoSlug
	}

	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}

	logging.Info("SelfUpdate", "Current version: %s", currentVersion)
	logging.Info("SelfUpdate", "Checking %s for updates...", slug)

	latest, found, err := detectLatest(ctx, selfupdate.ParseSlug(slug))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("latest version for %s could not be found on GitHub", slug)
	}

	if latest.LessOrEqual(currentVersion) {
		logging.Info("SelfUpdate", "Current version (%s) is the latest", currentVersion)
		return nil
	}

	logging.Info("SelfUpdate", "Updating to version %s", latest.Version())
	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}
	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	logging.Info("SelfUpdate", "Successfully updated to version %s", latest.Version())
	return nil
}
