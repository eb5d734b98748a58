package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

var defaultKeyMap = keyMap{
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "b"),
		key.WithHelp("esc/b", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter", "e"),
		key.WithHelp("enter", "edit"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "x"),
		key.WithHelp("d", "delete"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	AddCondition: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add condition"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
}

type keyMap struct {
	Help key.Binding
	Quit key.Binding
	Back key.Binding

	Up   key.Binding
	Down key.Binding

	Edit   key.Binding
	New    key.Binding
	Delete key.Binding
	Reload key.Binding

	AddCondition key.Binding
	Submit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit, k.Back}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Edit, k.New, k.Delete, k.Reload},
		{k.AddCondition, k.Submit},
		{k.Help, k.Quit, k.Back},
	}
}

// editorKeys is the help shown on the template editor screen.
type editorKeys struct {
	keyMap
}

func (k editorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.AddCondition, k.Delete, k.Submit, k.Reload, k.Back}
}

func (k editorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit},
		{k.AddCondition, k.Delete},
		{k.Submit, k.Reload, k.Back},
	}
}
