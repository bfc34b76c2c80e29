package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"devstack/internal/gitsync"
	"devstack/internal/reporting"
	"devstack/internal/tui"
)

// syncFlags holds the command line answers for "devstack sync".
type syncFlags struct {
	strategy  string
	yes       bool
	publish   bool
	noPublish bool
}

var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newSyncCmd() *cobra.Command {
	flags := &syncFlags{}
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the working copy with its remote repository",
		Long: `Synchronizes the project working copy with the configured remote.

An empty remote receives the local branch. A working copy without commits
adopts the remote branch. When both sides have history, the chosen strategy
decides: fetch only, rebase (falling back to a merge), or force push.

Without --strategy an interactive picker is shown on a terminal; otherwise
fetch is used. Force pushes and publishing local commits ask for confirmation
unless --yes, --publish or --no-publish answer for you.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "Reconciliation strategy for diverged histories (fetch, rebase, force)")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Confirm a force push without asking")
	cmd.Flags().BoolVar(&flags.publish, "publish", false, "Push local commits after reconciling without asking")
	cmd.Flags().BoolVar(&flags.noPublish, "no-publish", false, "Never push local commits after reconciling")
	cmd.MarkFlagsMutuallyExclusive("publish", "no-publish")

	return cmd
}

// options turns the flags into sync options. prompter is used for anything the
// flags leave open and may be nil when no terminal is attached.
func (f *syncFlags) options(prompter *tui.Prompter) (gitsync.Options, error) {
	var opts gitsync.Options
	if f.strategy != "" {
		s, err := gitsync.ParseStrategy(f.strategy)
		if err != nil {
			return opts, err
		}
		opts.Strategy = s
	}

	confirmer := tui.FlagConfirmer{}
	if f.yes {
		yes := true
		confirmer.Force = &yes
	}
	switch {
	case f.publish:
		v := true
		confirmer.Publish = &v
	case f.noPublish:
		v := false
		confirmer.Publish = &v
	}

	if prompter != nil {
		opts.Chooser = prompter
		confirmer.Fallback = prompter
	}
	opts.Confirmer = confirmer
	return opts, nil
}

func runSync(cmd *cobra.Command, flags *syncFlags) error {
	var prompter *tui.Prompter
	if stdinIsTerminal() {
		prompter = tui.NewPrompter(os.Stdin, cmd.OutOrStdout())
	}
	opts, err := flags.options(prompter)
	if err != nil {
		return err
	}

	application, err := newApplication()
	if err != nil {
		return err
	}
	synchronizer, err := application.Services().Synchronizer()
	if err != nil {
		return err
	}

	res, err := synchronizer.Sync(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return reporting.SyncSummary(cmd.OutOrStdout(), res)
}
