package tui

import (
	"strings"

	"devstack/internal/tui/design"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Confirm asks a yes/no question. Anything but an explicit yes is a no.
type Confirm struct {
	keys      KeyMap
	help      help.Model
	prompt    string
	detail    string
	danger    bool
	answered  bool
	answer    bool
	cancelled bool
}

// NewConfirm returns a yes/no prompt. Dangerous prompts are rendered in the error color.
func NewConfirm(prompt, detail string, danger bool) Confirm {
	return Confirm{keys: DefaultKeyMap(), help: help.New(), prompt: prompt, detail: detail, danger: danger}
}

func (m Confirm) Init() tea.Cmd {
	return nil
}

func (m Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.answered, m.answer = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.No):
		m.answered = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Quit):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Confirm) View() string {
	if m.answered || m.cancelled {
		return ""
	}
	style := design.TitleStyle
	if m.danger {
		style = design.DangerStyle
	}
	var b strings.Builder
	b.WriteString(style.Render(m.prompt + " [y/N]"))
	b.WriteString("\n")
	if m.detail != "" {
		b.WriteString(design.SubtitleStyle.Render(m.detail))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(confirmHelp(m.keys)))
	b.WriteString("\n")
	return design.PromptStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

// Result returns the answer and whether the prompt was cancelled.
func (m Confirm) Result() (answer, cancelled bool) {
	return m.answered && m.answer, m.cancelled
}
