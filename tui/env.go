package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notifier-app/notifier/internal/cfg"
)

func renderEnv(env map[string]string) string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	slices.Sort(names)

	var s strings.Builder
	for _, name := range names {
		s.WriteString(name + ": " + cfg.Mask(name, env[name]) + "\n")
	}
	return s.String()
}

func newEnv(s screen) (tea.Model, error) {
	entries, err := cfg.Get()
	if err != nil {
		return nil, err
	}

	vp := viewport.New(60, 20)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)

	vp.SetContent(renderEnv(entries))

	return envModel{
		screen:   s,
		keys:     defaultKeyMap,
		viewport: vp,
	}, nil
}

type envModel struct {
	screen
	keys     keyMap
	viewport viewport.Model
}

func (m envModel) Init() tea.Cmd {
	return nil
}

func (m envModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			return m.back(m)
		}
	}

	vp, cmd := m.viewport.Update(msg)
	m.viewport = vp
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m envModel) View() string {
	return AppStyle.Render(m.viewport.View() + m.helpView())
}

func (m envModel) helpView() string {
	return HelpStyle.Render("\n  ↑/↓: Navigate • q: Quit • b: Back • notifier env -w NAME=VALUE to edit\n")
}
