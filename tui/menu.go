package tui

import (
	"context"
	"log"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/notifier-app/notifier/internal/identity"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
)

// DraftStore keeps templates whose submission failed.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft notifier.Draft) (*notifier.Draft, error)
	DeleteDraft(ctx context.Context, id string) error
}

type Deps struct {
	Ctx      context.Context
	API      notifier.API
	Queries  *query.Client
	Identity *identity.Store
	Drafts   DraftStore
}

// backMsg is sent to a screen when one of its children returns to it.
type backMsg struct{}

// screen is the state shared by every model reachable from the menu.
type screen struct {
	deps   Deps
	parent tea.Model
	width  int
	height int
}

func (s screen) child() screen {
	return screen{deps: s.deps, width: s.width, height: s.height}
}

func resize(width int, height int) tea.Cmd {
	if width == 0 && height == 0 {
		return nil
	}
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: width, Height: height}
	}
}

// open switches to a child model and starts it.
func (s screen) open(child tea.Model) (tea.Model, tea.Cmd) {
	return child, tea.Batch(child.Init(), resize(s.width, s.height))
}

// back returns to the parent, or quits when the screen was started on its own.
func (s screen) back(current tea.Model) (tea.Model, tea.Cmd) {
	if s.parent == nil {
		return current, tea.Quit
	}
	return s.parent, tea.Batch(resize(s.width, s.height), func() tea.Msg { return backMsg{} })
}

type choice struct {
	title       string
	description string
	newModel    func(s screen) (tea.Model, error)
}

func (i choice) Title() string       { return i.title }
func (i choice) Description() string { return i.description }
func (i choice) FilterValue() string { return i.title }

func NewMain(deps Deps) tea.Model {
	l := list.New([]list.Item{
		choice{
			title:       "templates",
			description: "Lists, edits and removes your notification templates.",
			newModel:    newTemplates,
		},
		choice{
			title:       "new template",
			description: "Creates a notification template.",
			newModel:    newTemplateEditor,
		},
		choice{
			title:       "destinations",
			description: "Lists, adds and removes webhook destinations.",
			newModel:    newDestinations,
		},
		choice{
			title:       "integrations",
			description: "Lists, adds and removes Notion integrations.",
			newModel:    newIntegrations,
		},
		choice{
			title:       "account",
			description: "Logs in or out of your notifier account.",
			newModel:    newAccount,
		},
		choice{
			title:       "env",
			description: "Shows the environment variables for notifier.",
			newModel:    newEnv,
		},
	}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "notifier"
	l.Styles.HelpStyle = HelpStyle
	return model{
		screen: screen{deps: deps},
		keys:   defaultKeyMap,
		list:   l,
	}
}

type model struct {
	screen
	keys keyMap
	list list.Model
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := AppStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case msg.String() == "enter":
			item, ok := m.list.SelectedItem().(choice)
			if !ok {
				return m, nil
			}
			s := m.child()
			s.parent = m
			newModel, err := item.newModel(s)
			if err != nil {
				log.Println(err)
				return m, tea.Quit
			}
			return s.open(newModel)
		}
	}

	newListModel, tCmd := m.list.Update(msg)
	m.list = newListModel
	cmds = append(cmds, tCmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	return AppStyle.Render(m.list.View())
}
