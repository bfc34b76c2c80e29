package gitsync

import (
	"context"
	"fmt"
	"strings"
)

// Strategy selects how a diverged working copy is reconciled.
type Strategy string

const (
	// StrategyFetch updates remote-tracking refs only.
	StrategyFetch Strategy = "fetch"
	// StrategyRebase replays local commits onto the remote branch, falling back to a merge.
	StrategyRebase Strategy = "rebase"
	// StrategyForce overwrites the remote branch with the local one.
	StrategyForce Strategy = "force"
)

// Strategies lists the strategies in presentation order.
var Strategies = []Strategy{StrategyFetch, StrategyRebase, StrategyForce}

// Description is a one-line explanation of s.
func (s Strategy) Description() string {
	switch s {
	case StrategyFetch:
		return "Fetch remote changes without touching local branches"
	case StrategyRebase:
		return "Pull with rebase, falling back to a merge"
	case StrategyForce:
		return "Force push local branch over the remote (destructive)"
	}
	return ""
}

// Dangerous reports whether s can discard history.
func (s Strategy) Dangerous() bool {
	return s == StrategyForce
}

// ParseStrategy parses a strategy name as accepted on the command line.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Strategies {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w %q (want fetch, rebase or force)", ErrUnknownStrategy, name)
}

// Confirmer answers the operator questions asked during a sync.
type Confirmer interface {
	// ConfirmForce asks whether local may overwrite remoteBranch.
	ConfirmForce(ctx context.Context, local, remoteBranch string) (bool, error)
	// ConfirmPublish asks whether ahead local commits should be pushed to remoteBranch.
	ConfirmPublish(ctx context.Context, local, remoteBranch string, ahead int) (bool, error)
}

// StrategyChooser picks a strategy once the working copy is known to have diverged.
type StrategyChooser interface {
	ChooseStrategy(ctx context.Context, local, remoteBranch string) (Strategy, error)
}

// Answers is a Confirmer with fixed answers, used for non-interactive runs.
type Answers struct {
	Force   bool
	Publish bool
}

// ConfirmForce implements Confirmer.
func (a Answers) ConfirmForce(ctx context.Context, local, remoteBranch string) (bool, error) {
	return a.Force, nil
}

// ConfirmPublish implements Confirmer.
func (a Answers) ConfirmPublish(ctx context.Context, local, remoteBranch string, ahead int) (bool, error) {
	return a.Publish, nil
}
