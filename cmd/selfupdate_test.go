package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func withVersion(t *testing.T, v string) {
	t.Helper()
	orig := rootCmd.Version
	rootCmd.Version = v
	t.Cleanup(func() { rootCmd.Version = orig })
}

func stubDetectLatest(t *testing.T, fn func(ctx context.Context, repo selfupdate.Repository) (*selfupdate.Release, bool, error)) {
	t.Helper()
	orig := detectLatest
	detectLatest = fn
	t.Cleanup(func() { detectLatest = orig })
}

func TestRunSelfUpdate_RefusesDevelopmentBuilds(t *testing.T) {
	stubDetectLatest(t, func(ctx context.Context, repo selfupdate.Repository) (*selfupdate.Release, bool, error) {
		t.Fatal("release lookup must not run for development builds")
		return nil, false, nil
	})

	for _, v := range []string{"dev", ""} {
		withVersion(t, v)
		err := runSelfUpdate(nil, nil)
		assert.EqualError(t, err, "cannot self-update a development version", "version %q", v)
	}
}

func TestRunSelfUpdate_UsesCommandContextAndRepository(t *testing.T) {
	withVersion(t, "1.2.0")
	origRepo := updateRepository
	updateRepository = "acme/devstack-fork"
	t.Cleanup(func() { updateRepository = origRepo })

	var gotValue any
	var gotRepo selfupdate.Repository
	stubDetectLatest(t, func(ctx context.Context, repo selfupdate.Repository) (*selfupdate.Release, bool, error) {
		gotValue = ctx.Value(ctxKey{})
		gotRepo = repo
		return nil, false, errors.New("rate limited")
	})

	cmd := &cobra.Command{}
	cmd.SetContext(context.WithValue(context.Background(), ctxKey{}, "from-command"))

	err := runSelfUpdate(cmd, nil)
	assert.ErrorContains(t, err, "rate limited")
	assert.Equal(t, "from-command", gotValue)
	assert.Equal(t, selfupdate.ParseSlug("acme/devstack-fork"), gotRepo)
}

func TestRunSelfUpdate_NoRelease(t *testing.T) {
	withVersion(t, "1.2.0")
	stubDetectLatest(t, func(ctx context.Context, repo selfupdate.Repository) (*selfupdate.Release, bool, error) {
		return nil, false, nil
	})

	err := runSelfUpdate(nil, nil)
	assert.ErrorContains(t, err, "could not be found")
}

func TestSelfUpdateCommand(t *testing.T) {
	c := newSelfUpdateCmd()
	assert.Equal(t, "self-update", c.Use)

	flag := c.Flags().Lookup("repository")
	require.NotNil(t, flag)
	assert.Equal(t, githubRepoSlug, flag.DefValue)

	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"--help"})
	require.NoError(t, c.Execute())
	assert.Contains(t, buf.String(), "--repository")
}
