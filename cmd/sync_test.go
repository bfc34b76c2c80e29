package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devstack/internal/config"
	"devstack/internal/gitsync"
	"devstack/internal/tui"
)

func TestSyncFlags_Options(t *testing.T) {
	ctx := context.Background()

	t.Run("no flags and no terminal declines everything", func(t *testing.T) {
		opts, err := (&syncFlags{}).options(nil)
		require.NoError(t, err)
		assert.Empty(t, opts.Strategy)
		assert.Nil(t, opts.Chooser)

		force, err := opts.Confirmer.ConfirmForce(ctx, "main", "main")
		require.NoError(t, err)
		assert.False(t, force)
		publish, err := opts.Confirmer.ConfirmPublish(ctx, "main", "main", 2)
		require.NoError(t, err)
		assert.False(t, publish)
	})

	t.Run("flags answer confirmations", func(t *testing.T) {
		opts, err := (&syncFlags{strategy: "force", yes: true, publish: true}).options(nil)
		require.NoError(t, err)
		assert.Equal(t, gitsync.StrategyForce, opts.Strategy)

		force, err := opts.Confirmer.ConfirmForce(ctx, "main", "main")
		require.NoError(t, err)
		assert.True(t, force)
		publish, err := opts.Confirmer.ConfirmPublish(ctx, "main", "main", 1)
		require.NoError(t, err)
		assert.True(t, publish)
	})

	t.Run("no-publish overrides the prompt", func(t *testing.T) {
		prompter := tui.NewPrompter(&bytes.Buffer{}, &bytes.Buffer{})
		opts, err := (&syncFlags{noPublish: true}).options(prompter)
		require.NoError(t, err)
		assert.Same(t, prompter, opts.Chooser)

		confirmer, ok := opts.Confirmer.(tui.FlagConfirmer)
		require.True(t, ok)
		require.NotNil(t, confirmer.Publish)
		assert.False(t, *confirmer.Publish)
		assert.Nil(t, confirmer.Force)
		assert.Same(t, prompter, confirmer.Fallback)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := (&syncFlags{strategy: "squash"}).options(nil)
		assert.ErrorIs(t, err, gitsync.ErrUnknownStrategy)
	})
}

func TestSyncCommand_Flags(t *testing.T) {
	c := newSyncCmd()
	for _, name := range []string{"strategy", "yes", "publish", "no-publish"} {
		assert.NotNil(t, c.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "y", c.Flags().Lookup("yes").Shorthand)
}

func TestSyncCommand_MissingRepositorySettings(t *testing.T) {
	origTerminal := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = origTerminal })

	t.Setenv("DEVSTACK_REPO_URL", "")
	t.Setenv("DEVSTACK_REPO_PATH", "")
	t.Setenv("DEVSTACK_CMD_TEST_TOKEN", "")

	configDir := filepath.Join(t.TempDir(), ".devstack")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(`
repository:
  tokenEnv: DEVSTACK_CMD_TEST_TOKEN
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"sync", "--config-dir", configDir})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	assert.ErrorIs(t, err, config.ErrConfigurationMissing)
}
