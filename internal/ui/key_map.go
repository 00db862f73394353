package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	edit     key.Binding
	language key.Binding
	queue    key.Binding
	scan     key.Binding
	refresh  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
		language: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "edit language")),
		queue:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "process")),
		scan:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.edit, k.language, k.queue},
		{k.scan, k.refresh, k.back, k.quit},
	}
}
