// Package gitsync reconciles a local working copy with its remote.
//
// The synchronizer first classifies the working copy, then acts:
//
//	Uninitialized  not a repository; the caller must initialize it first
//	RemoteEmpty    the remote has no branches; the local branch is published
//	Clean          the remote has a head branch and the local copy has no
//	               commits; the remote branch is adopted as is
//	Diverged       both sides have history; the selected Strategy decides
//
// The remote head branch is discovered, never assumed: main is preferred,
// then master.
package gitsync

import (
	"context"
	"fmt"
	"slices"

	"devstack/internal/config"
	"devstack/pkg/logging"
)

// State is the classification of the working copy before reconciliation.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateClean         State = "clean"
	StateRemoteEmpty   State = "remote-empty"
	StateDiverged      State = "diverged"
)

// Outcome is what a successful sync did.
type Outcome string

const (
	OutcomePublished        Outcome = "published"
	OutcomeNothingToPublish Outcome = "nothing-to-publish"
	OutcomeAdopted          Outcome = "adopted"
	OutcomeFetched          Outcome = "fetched"
	OutcomeRebased          Outcome = "rebased"
	OutcomeMerged           Outcome = "merged"
	OutcomeForced           Outcome = "forced"
)

var preferredHeads = []string{"main", "master"}

// Options control one Sync call.
type Options struct {
	// Strategy applies to a diverged working copy. When empty, Chooser is asked;
	// without a Chooser the fetch strategy is used.
	Strategy  Strategy
	Chooser   StrategyChooser
	Confirmer Confirmer
}

// Result describes a completed sync.
type Result struct {
	State        State
	LocalBranch  string
	RemoteBranch string
	Strategy     Strategy
	Outcome      Outcome
	// Ahead is the number of local commits the remote branch lacked after reconciliation.
	Ahead     int
	Published bool
}

// Synchronizer runs the reconciliation protocol against one working copy.
type Synchronizer struct {
	git       Git
	remote    string
	remoteURL string
	redactor  Redactor
}

// New validates the repository settings and returns a Synchronizer using the git CLI.
// It fails with config.ErrConfigurationMissing before running any git command.
func New(cfg config.DevstackConfig) (*Synchronizer, error) {
	if err := cfg.ValidateRepository(); err != nil {
		return nil, err
	}
	token := cfg.Credential()
	remote := cfg.Repository.RemoteName
	if remote == "" {
		remote = config.DefaultRemoteName
	}
	return NewWithGit(NewCLI(cfg.Repository.Path, token), remote, CredentialedURL(cfg.Repository.RemoteURL, token), token), nil
}

// NewWithGit returns a Synchronizer over git. secrets are redacted from errors.
func NewWithGit(git Git, remote, remoteURL string, secrets ...string) *Synchronizer {
	return &Synchronizer{git: git, remote: remote, remoteURL: remoteURL, redactor: NewRedactor(secrets...)}
}

// Sync classifies the working copy and reconciles it. Any failure aborts the
// whole operation.
func (s *Synchronizer) Sync(ctx context.Context, opts Options) (Result, error) {
	res, err := s.sync(ctx, opts)
	if err != nil {
		err = s.redactError(err)
		logging.Error("GitSync", err, "Sync failed in state %s", res.State)
	}
	return res, err
}

func (s *Synchronizer) sync(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if opts.Confirmer == nil {
		opts.Confirmer = Answers{}
	}

	if !s.git.IsRepository(ctx) {
		res.State = StateUninitialized
		return res, ErrUninitialized
	}
	if err := s.ensureRemote(ctx); err != nil {
		return res, err
	}

	local, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return res, fmt.Errorf("determine current branch: %w", err)
	}
	res.LocalBranch = local

	heads, err := s.git.RemoteHeads(ctx, s.remote)
	if err != nil {
		return res, fmt.Errorf("%w: list remote branches: %v", ErrRemoteRejected, err)
	}
	res.RemoteBranch = headBranch(heads)

	commits, err := s.git.CommitCount(ctx)
	if err != nil {
		return res, fmt.Errorf("count local commits: %w", err)
	}

	switch {
	case res.RemoteBranch == "":
		res.State = StateRemoteEmpty
		return s.publishToEmptyRemote(ctx, res, commits)
	case commits == 0:
		res.State = StateClean
		return s.adopt(ctx, res)
	default:
		res.State = StateDiverged
		return s.reconcile(ctx, res, opts)
	}
}

// ensureRemote points the remote at the credentialed URL.
func (s *Synchronizer) ensureRemote(ctx context.Context) error {
	current, found, err := s.git.RemoteURL(ctx, s.remote)
	if err != nil {
		return fmt.Errorf("read remote %s: %w", s.remote, err)
	}
	switch {
	case !found:
		logging.Info("GitSync", "Adding remote %s", s.remote)
		err = s.git.AddRemote(ctx, s.remote, s.remoteURL)
	case current != s.remoteURL:
		logging.Info("GitSync", "Updating URL of remote %s", s.remote)
		err = s.git.SetRemoteURL(ctx, s.remote, s.remoteURL)
	}
	if err != nil {
		return fmt.Errorf("configure remote %s: %w", s.remote, err)
	}
	return nil
}

// headBranch picks main, then master, else reports an empty remote.
func headBranch(heads []string) string {
	for _, name := range preferredHeads {
		if slices.Contains(heads, name) {
			return name
		}
	}
	return ""
}

// publishToEmptyRemote is the only action on an empty remote. It never rebases or merges.
func (s *Synchronizer) publishToEmptyRemote(ctx context.Context, res Result, commits int) (Result, error) {
	if commits == 0 {
		logging.Info("GitSync", "Remote is empty and %s has no commits, nothing to publish", res.LocalBranch)
		res.Outcome = OutcomeNothingToPublish
		return res, nil
	}
	logging.Info("GitSync", "Remote is empty, publishing %s", res.LocalBranch)
	if err := s.git.Push(ctx, s.remote, res.LocalBranch, PushOptions{SetUpstream: true}); err != nil {
		return res, fmt.Errorf("%w: publish %s: %v", ErrRemoteRejected, res.LocalBranch, err)
	}
	res.RemoteBranch = res.LocalBranch
	res.Outcome = OutcomePublished
	res.Published = true
	res.Ahead = commits
	return res, nil
}

// adopt makes the remote branch the local branch when there is no local history.
func (s *Synchronizer) adopt(ctx context.Context, res Result) (Result, error) {
	if err := s.git.Fetch(ctx, s.remote, res.RemoteBranch); err != nil {
		return res, fmt.Errorf("%w: fetch %s: %v", ErrRemoteRejected, res.RemoteBranch, err)
	}
	if err := s.git.CheckoutRemote(ctx, res.RemoteBranch, s.remote, res.RemoteBranch); err != nil {
		return res, fmt.Errorf("adopt %s/%s: %w", s.remote, res.RemoteBranch, err)
	}
	logging.Info("GitSync", "Adopted %s/%s as %s", s.remote, res.RemoteBranch, res.RemoteBranch)
	res.LocalBranch = res.RemoteBranch
	res.Outcome = OutcomeAdopted
	return res, nil
}

func (s *Synchronizer) reconcile(ctx context.Context, res Result, opts Options) (Result, error) {
	strategy := opts.Strategy
	if strategy == "" && opts.Chooser != nil {
		chosen, err := opts.Chooser.ChooseStrategy(ctx, res.LocalBranch, res.RemoteBranch)
		if err != nil {
			return res, fmt.Errorf("choose strategy: %w", err)
		}
		strategy = chosen
	}
	if strategy == "" {
		strategy = StrategyFetch
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return res, err
	}
	res.Strategy = strategy
	logging.Info("GitSync", "%s and %s/%s have diverged, using %s", res.LocalBranch, s.remote, res.RemoteBranch, strategy)

	var err error
	switch strategy {
	case StrategyForce:
		return s.force(ctx, res, opts.Confirmer)
	case StrategyRebase:
		res, err = s.pull(ctx, res)
	default:
		res, err = s.fetch(ctx, res)
	}
	if err != nil {
		return res, err
	}
	return s.offerPublish(ctx, res, opts.Confirmer)
}

func (s *Synchronizer) fetch(ctx context.Context, res Result) (Result, error) {
	if err := s.git.Fetch(ctx, s.remote); err != nil {
		return res, fmt.Errorf("%w: fetch: %v", ErrRemoteRejected, err)
	}
	res.Outcome = OutcomeFetched
	return res, nil
}

// pull rebases onto the remote branch and falls back to a merge. A rebase that
// stopped half way is aborted first; one that refused to start leaves nothing
// to abort. A failed merge is aborted so the working copy is left clean.
func (s *Synchronizer) pull(ctx context.Context, res Result) (Result, error) {
	if err := s.git.Fetch(ctx, s.remote, res.RemoteBranch); err != nil {
		return res, fmt.Errorf("%w: fetch %s: %v", ErrRemoteRejected, res.RemoteBranch, err)
	}
	upstream := s.remote + "/" + res.RemoteBranch

	rebaseErr := s.git.Rebase(ctx, upstream)
	if rebaseErr == nil {
		res.Outcome = OutcomeRebased
		return res, nil
	}
	logging.Warn("GitSync", "Rebase onto %s failed, trying a merge: %v", upstream, s.redactor.Redact(rebaseErr.Error()))

	rebasing, err := s.git.RebaseInProgress(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: check rebase state: %v", ErrManualInterventionRequired, err)
	}
	if rebasing {
		if err := s.git.RebaseAbort(ctx); err != nil {
			return res, fmt.Errorf("%w: rebase could not be aborted: %v", ErrManualInterventionRequired, err)
		}
		if err := s.requireClean(ctx, "rebase"); err != nil {
			return res, err
		}
	}

	mergeErr := s.git.Merge(ctx, upstream)
	if mergeErr == nil {
		res.Outcome = OutcomeMerged
		return res, nil
	}
	merging, err := s.git.MergeInProgress(ctx)
	switch {
	case err != nil:
		logging.Warn("GitSync", "Could not check merge state: %v", s.redactor.Redact(err.Error()))
	case merging:
		if err := s.git.MergeAbort(ctx); err != nil {
			logging.Warn("GitSync", "Merge abort failed: %v", s.redactor.Redact(err.Error()))
		}
	}
	return res, fmt.Errorf("%w: %s cannot be rebased or merged onto %s: %v", ErrManualInterventionRequired, res.LocalBranch, upstream, mergeErr)
}

func (s *Synchronizer) requireClean(ctx context.Context, after string) error {
	clean, err := s.git.IsClean(ctx)
	if err != nil {
		return fmt.Errorf("%w: check working copy after %s abort: %v", ErrManualInterventionRequired, after, err)
	}
	if !clean {
		return fmt.Errorf("%w: working copy not clean after %s abort", ErrManualInterventionRequired, after)
	}
	return nil
}

func (s *Synchronizer) force(ctx context.Context, res Result, confirm Confirmer) (Result, error) {
	ok, err := confirm.ConfirmForce(ctx, res.LocalBranch, res.RemoteBranch)
	if err != nil {
		return res, fmt.Errorf("confirm force push: %w", err)
	}
	if !ok {
		return res, ErrForceNotConfirmed
	}
	refspec := res.LocalBranch + ":" + res.RemoteBranch
	logging.Warn("GitSync", "Force pushing %s over %s/%s", res.LocalBranch, s.remote, res.RemoteBranch)
	if err := s.git.Push(ctx, s.remote, refspec, PushOptions{Force: true}); err != nil {
		return res, fmt.Errorf("%w: force push: %v", ErrRemoteRejected, err)
	}
	res.Outcome = OutcomeForced
	res.Published = true
	return res, nil
}

// offerPublish asks whether local commits missing on the remote should be
// pushed. Declining is a successful outcome.
func (s *Synchronizer) offerPublish(ctx context.Context, res Result, confirm Confirmer) (Result, error) {
	ahead, err := s.git.AheadCount(ctx, s.remote, res.RemoteBranch)
	if err != nil {
		return res, fmt.Errorf("count unpublished commits: %w", err)
	}
	res.Ahead = ahead
	if ahead == 0 {
		return res, nil
	}

	ok, err := confirm.ConfirmPublish(ctx, res.LocalBranch, res.RemoteBranch, ahead)
	if err != nil {
		return res, fmt.Errorf("confirm publish: %w", err)
	}
	if !ok {
		logging.Info("GitSync", "Leaving %d local commits unpublished", ahead)
		return res, nil
	}
	if err := s.git.Push(ctx, s.remote, res.LocalBranch+":"+res.RemoteBranch, PushOptions{}); err != nil {
		return res, fmt.Errorf("%w: publish: %v", ErrRemoteRejected, err)
	}
	res.Published = true
	return res, nil
}

// redactError keeps the error chain intact for errors.Is while hiding secrets
// in the message.
func (s *Synchronizer) redactError(err error) error {
	msg := s.redactor.Redact(err.Error())
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
