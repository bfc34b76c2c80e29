package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the sync prompts.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Yes   key.Binding
	No    key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns a KeyMap with default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N"),
			key.WithHelp("n", "no"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// ShortHelp returns the bindings shown under the strategy picker.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Quit}
}

// FullHelp returns bindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Yes, k.No, k.Quit},
	}
}

// confirmHelp is the help for yes/no prompts.
type confirmHelp KeyMap

func (k confirmHelp) ShortHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No, k.Quit}
}

func (k confirmHelp) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
