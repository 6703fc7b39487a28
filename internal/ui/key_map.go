package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI. List navigation and filtering use the
// bubbles list defaults.
type keyMap struct {
	open    key.Binding
	export  key.Binding
	back    key.Binding
	confirm key.Binding
	cancel  key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open run")),
		export:  key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter/e", "export to Spotify")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "create playlist")),
		cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "back to runs")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.open, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.open, k.export, k.back},
		{k.confirm, k.cancel},
		{k.restart, k.quit},
	}
}
