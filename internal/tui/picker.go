package tui

import (
	"fmt"
	"strings"

	"devstack/internal/gitsync"
	"devstack/internal/tui/design"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// StrategyPicker lets the operator choose how to reconcile a diverged branch.
type StrategyPicker struct {
	keys      KeyMap
	help      help.Model
	choices   []gitsync.Strategy
	cursor    int
	local     string
	remote    string
	chosen    gitsync.Strategy
	cancelled bool
}

// NewStrategyPicker returns a picker for local diverging from remote.
func NewStrategyPicker(local, remote string) StrategyPicker {
	return StrategyPicker{
		keys:    DefaultKeyMap(),
		help:    help.New(),
		choices: gitsync.Strategies,
		local:   local,
		remote:  remote,
	}
}

func (m StrategyPicker) Init() tea.Cmd {
	return nil
}

func (m StrategyPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.cancelled = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, m.keys.Enter):
		m.chosen = m.choices[m.cursor]
		return m, tea.Quit
	}
	return m, nil
}

func (m StrategyPicker) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(design.TitleStyle.Render(fmt.Sprintf("%s has diverged from %s", m.local, m.remote)))
	b.WriteString("\n")
	for i, s := range m.choices {
		line := fmt.Sprintf("%-7s %s", s, s.Description())
		style := design.ListItemStyle
		if i == m.cursor {
			line = "> " + line
			style = design.ListItemSelectedStyle
		} else {
			line = "  " + line
		}
		if s.Dangerous() && i == m.cursor {
			style = style.Foreground(design.ColorError)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// Result returns the selected strategy; ok is false when the picker was cancelled.
func (m StrategyPicker) Result() (gitsync.Strategy, bool) {
	return m.chosen, m.chosen != "" && !m.cancelled
}
