// Package tui provides the interactive prompts used by "devstack sync": a
// strategy picker and yes/no confirmations. They implement the gitsync
// chooser and confirmer interfaces, so the synchronizer itself stays
// non-interactive.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"devstack/internal/gitsync"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = errors.New("cancelled by operator")

// Prompter asks questions on a terminal.
type Prompter struct {
	in  io.Reader
	out io.Writer
	run func(ctx context.Context, m tea.Model) (tea.Model, error)
}

// NewPrompter returns a Prompter reading keys from in and drawing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: in, out: out}
	p.run = p.runProgram
	return p
}

func (p *Prompter) runProgram(ctx context.Context, m tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(m, tea.WithInput(p.in), tea.WithOutput(p.out), tea.WithContext(ctx))
	return prog.Run()
}

// ChooseStrategy implements gitsync.StrategyChooser.
func (p *Prompter) ChooseStrategy(ctx context.Context, local, remoteBranch string) (gitsync.Strategy, error) {
	final, err := p.run(ctx, NewStrategyPicker(local, remoteBranch))
	if err != nil {
		return "", fmt.Errorf("strategy picker: %w", err)
	}
	picker, ok := final.(StrategyPicker)
	if !ok {
		return "", fmt.Errorf("strategy picker: unexpected model %T", final)
	}
	s, ok := picker.Result()
	if !ok {
		return "", ErrCancelled
	}
	return s, nil
}

// ConfirmForce implements gitsync.Confirmer.
func (p *Prompter) ConfirmForce(ctx context.Context, local, remoteBranch string) (bool, error) {
	return p.confirm(ctx, NewConfirm(
		fmt.Sprintf("Force push %s over the remote %s branch?", local, remoteBranch),
		"Commits that exist only on the remote will be lost.",
		true,
	))
}

// ConfirmPublish implements gitsync.Confirmer.
func (p *Prompter) ConfirmPublish(ctx context.Context, local, remoteBranch string, ahead int) (bool, error) {
	return p.confirm(ctx, NewConfirm(
		fmt.Sprintf("Push %d local commit(s) from %s to %s?", ahead, local, remoteBranch),
		"",
		false,
	))
}

func (p *Prompter) confirm(ctx context.Context, m Confirm) (bool, error) {
	final, err := p.run(ctx, m)
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	c, ok := final.(Confirm)
	if !ok {
		return false, fmt.Errorf("confirmation prompt: unexpected model %T", final)
	}
	answer, cancelled := c.Result()
	if cancelled {
		return false, ErrCancelled
	}
	return answer, nil
}

// FlagConfirmer answers from command line flags where given and defers to
// Fallback otherwise. A nil Fallback declines.
type FlagConfirmer struct {
	Force    *bool
	Publish  *bool
	Fallback gitsync.Confirmer
}

// ConfirmForce implements gitsync.Confirmer.
func (f FlagConfirmer) ConfirmForce(ctx context.Context, local, remoteBranch string) (bool, error) {
	if f.Force != nil {
		return *f.Force, nil
	}
	if f.Fallback == nil {
		return false, nil
	}
	return f.Fallback.ConfirmForce(ctx, local, remoteBranch)
}

// ConfirmPublish implements gitsync.Confirmer.
func (f FlagConfirmer) ConfirmPublish(ctx context.Context, local, remoteBranch string, ahead int) (bool, error) {
	if f.Publish != nil {
		return *f.Publish, nil
	}
	if f.Fallback == nil {
		return false, nil
	}
	return f.Fallback.ConfirmPublish(ctx, local, remoteBranch, ahead)
}
