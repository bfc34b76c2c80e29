package tui

import (
	"context"
	"errors"
	"testing"

	"devstack/internal/gitsync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// feed applies msgs to m in order, stopping at the first quit command.
func feed(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		var cmd tea.Cmd
		m, cmd = m.Update(msg)
		if cmd != nil {
			if _, quit := cmd().(tea.QuitMsg); quit {
				return m
			}
		}
	}
	return m
}

func TestStrategyPicker_Navigation(t *testing.T) {
	m := feed(NewStrategyPicker("work", "main"),
		tea.KeyMsg{Type: tea.KeyDown},
		keyRunes("j"),
		keyRunes("j"), // clamps at the last choice
		keyRunes("k"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	s, ok := m.(StrategyPicker).Result()
	require.True(t, ok)
	assert.Equal(t, gitsync.StrategyRebase, s)
}

func TestStrategyPicker_DefaultAndCancel(t *testing.T) {
	m := feed(NewStrategyPicker("work", "main"), tea.KeyMsg{Type: tea.KeyEnter})
	s, ok := m.(StrategyPicker).Result()
	require.True(t, ok)
	assert.Equal(t, gitsync.StrategyFetch, s)

	m = feed(NewStrategyPicker("work", "main"), tea.KeyMsg{Type: tea.KeyEsc})
	_, ok = m.(StrategyPicker).Result()
	assert.False(t, ok)
}

func TestStrategyPicker_View(t *testing.T) {
	view := NewStrategyPicker("work", "main").View()
	assert.Contains(t, view, "work has diverged from main")
	for _, s := range gitsync.Strategies {
		assert.Contains(t, view, s.Description())
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name          string
		key           tea.KeyMsg
		wantAnswer    bool
		wantCancelled bool
	}{
		{"yes", keyRunes("y"), true, false},
		{"no", keyRunes("n"), false, false},
		{"cancel", tea.KeyMsg{Type: tea.KeyCtrlC}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := feed(NewConfirm("Push?", "", false), tt.key)
			answer, cancelled := m.(Confirm).Result()
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, tt.wantCancelled, cancelled)
		})
	}

	// Unrelated keys leave the prompt open.
	m := feed(NewConfirm("Push?", "", false), keyRunes("x"))
	assert.Contains(t, m.View(), "Push? [y/N]")
}

func scriptedPrompter(msgs ...tea.Msg) *Prompter {
	p := NewPrompter(nil, nil)
	p.run = func(ctx context.Context, m tea.Model) (tea.Model, error) {
		return feed(m, msgs...), nil
	}
	return p
}

func TestPrompter(t *testing.T) {
	ctx := context.Background()

	s, err := scriptedPrompter(tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter}).ChooseStrategy(ctx, "work", "main")
	require.NoError(t, err)
	assert.Equal(t, gitsync.StrategyForce, s)

	_, err = scriptedPrompter(keyRunes("q")).ChooseStrategy(ctx, "work", "main")
	assert.ErrorIs(t, err, ErrCancelled)

	ok, err := scriptedPrompter(keyRunes("y")).ConfirmForce(ctx, "work", "main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = scriptedPrompter(keyRunes("n")).ConfirmPublish(ctx, "work", "main", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = scriptedPrompter(tea.KeyMsg{Type: tea.KeyEsc}).ConfirmPublish(ctx, "work", "main", 3)
	assert.True(t, errors.Is(err, ErrCancelled))
}

func TestFlagConfirmer(t *testing.T) {
	ctx := context.Background()
	yes := true

	f := FlagConfirmer{Force: &yes}
	ok, err := f.ConfirmForce(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.ConfirmPublish(ctx, "a", "b", 1)
	require.NoError(t, err)
	assert.False(t, ok, "no flag and no fallback declines")

	f = FlagConfirmer{Fallback: gitsync.Answers{Publish: true}}
	ok, err = f.ConfirmPublish(ctx, "a", "b", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
