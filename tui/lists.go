package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
)

type item struct {
	id          string
	title       string
	description string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.description }
func (i item) FilterValue() string { return i.title }

// resource configures a list screen for one kind of remote object.
type resource struct {
	title string
	load  func(ctx context.Context) ([]list.Item, error)
	// remove also invalidates the cached queries of the kind.
	remove func(ctx context.Context, id string) error
	// create returns the form for a new object and the action run once it is completed.
	create func() (*huh.Form, func(ctx context.Context) (string, error))
	open   func(s screen, id string) (tea.Model, error)
}

type itemsLoadedMsg struct {
	items []list.Item
	err   error
}

type actionDoneMsg struct {
	status string
	err    error
}

func newResourceList(s screen, r resource) listModel {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = r.title
	l.Styles.HelpStyle = HelpStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		bindings := []key.Binding{defaultKeyMap.Reload, defaultKeyMap.Back}
		if r.create != nil {
			bindings = append(bindings, defaultKeyMap.New)
		}
		if r.remove != nil {
			bindings = append(bindings, defaultKeyMap.Delete)
		}
		return bindings
	}
	return listModel{
		screen:   s,
		keys:     defaultKeyMap,
		resource: r,
		list:     l,
	}
}

type listModel struct {
	screen
	keys     keyMap
	resource resource
	list     list.Model

	form   *huh.Form
	action func(ctx context.Context) (string, error)

	status string
	err    error
}

func (m listModel) Init() tea.Cmd {
	return m.reload()
}

func (m *listModel) reload() tea.Cmd {
	load := m.resource.load
	ctx := m.deps.Ctx
	return tea.Batch(m.list.StartSpinner(), func() tea.Msg {
		items, err := load(ctx)
		return itemsLoadedMsg{items: items, err: err}
	})
}

func (m listModel) run(action func(ctx context.Context) (string, error)) tea.Cmd {
	ctx := m.deps.Ctx
	return func() tea.Msg {
		status, err := action(ctx)
		return actionDoneMsg{status: status, err: err}
	}
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := AppStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-2)

	case backMsg:
		cmd := m.reload()
		return m, cmd

	case itemsLoadedMsg:
		m.list.StopSpinner()
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		return m, m.list.SetItems(msg.items)

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		cmd := m.reload()
		return m, cmd
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			return m.back(m)

		case key.Matches(msg, m.keys.Reload):
			m.status = ""
			cmd := m.reload()
			return m, cmd

		case key.Matches(msg, m.keys.New) && m.resource.create != nil:
			m.form, m.action = m.resource.create()
			return m, m.form.Init()

		case key.Matches(msg, m.keys.Delete) && m.resource.remove != nil:
			selected, ok := m.list.SelectedItem().(item)
			if !ok {
				return m, nil
			}
			confirmed := new(bool)
			m.form = ConfirmForm(fmt.Sprintf("Remove %s?", selected.title), confirmed)
			remove := m.resource.remove
			m.action = func(ctx context.Context) (string, error) {
				if !*confirmed {
					return "", nil
				}
				if err := remove(ctx, selected.id); err != nil {
					return "", err
				}
				return "Removed " + selected.title, nil
			}
			return m, m.form.Init()

		case msg.String() == "enter" && m.resource.open != nil:
			selected, ok := m.list.SelectedItem().(item)
			if !ok {
				return m, nil
			}
			s := m.child()
			s.parent = m
			child, err := m.resource.open(s, selected.id)
			if err != nil {
				m.err = err
				return m, nil
			}
			return s.open(child)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateForm forwards msg to the open form and runs the action once the form is completed.
func (m listModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.form, m.action = nil, nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		action := m.action
		m.form, m.action = nil, nil
		return m, m.run(action)
	}
	return m, cmd
}

func (m listModel) View() string {
	if m.form != nil {
		return AppStyle.Render(boxStyle.Render(m.form.View()) + HelpStyle.Render(mutedStyle.Render("esc: cancel")))
	}

	footer := ""
	switch {
	case m.err != nil:
		footer = errorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		footer = successStyle.Render(m.status)
	}
	return AppStyle.Render(m.list.View() + "\n" + footer)
}

func newTemplates(s screen) (tea.Model, error) {
	api, queries := s.deps.API, s.deps.Queries
	return newResourceList(s, resource{
		title: "Templates",
		load: func(ctx context.Context) ([]list.Item, error) {
			templates, err := query.Fetch(ctx, queries, editor.TemplatesKey(), api.GetTemplates)
			if err != nil {
				return nil, err
			}
			items := make([]list.Item, 0, len(templates))
			for _, template := range templates {
				items = append(items, item{
					id:          template.ID,
					title:       template.Name,
					description: conditionCount(len(template.Conditions)) + ", updated " + humanize.Time(template.UpdatedAt),
				})
			}
			return items, nil
		},
		remove: func(ctx context.Context, id string) error {
			if err := api.DeleteTemplate(ctx, id); err != nil {
				return err
			}
			queries.Invalidate(editor.TemplateKey(id))
			queries.Invalidate(editor.TemplatesKey())
			return nil
		},
		open: func(s screen, id string) (tea.Model, error) {
			ed, err := editor.New(s.deps.Ctx, api, queries, editor.WithTemplate(id))
			if err != nil {
				return nil, err
			}
			return newEditorModel(s, ed), nil
		},
	}), nil
}

func conditionCount(n int) string {
	if n == 1 {
		return "1 condition"
	}
	return strconv.Itoa(n) + " conditions"
}

func newDestinations(s screen) (tea.Model, error) {
	api, queries := s.deps.API, s.deps.Queries
	return newResourceList(s, resource{
		title: "Destinations",
		load: func(ctx context.Context) ([]list.Item, error) {
			destinations, err := query.Fetch(ctx, queries, editor.DestinationsKey(), api.GetDestinations)
			if err != nil {
				return nil, err
			}
			items := make([]list.Item, 0, len(destinations))
			for _, destination := range destinations {
				items = append(items, item{
					id:          destination.ID,
					title:       destination.Label(),
					description: destination.WebhookURL,
				})
			}
			return items, nil
		},
		remove: func(ctx context.Context, id string) error {
			if err := api.DeleteDestination(ctx, id); err != nil {
				return err
			}
			queries.Invalidate(editor.DestinationsKey())
			return nil
		},
		create: func() (*huh.Form, func(ctx context.Context) (string, error)) {
			rq := &notifier.DestinationRequest{}
			return DestinationForm(rq, "New destination"), func(ctx context.Context) (string, error) {
				destination, err := api.CreateDestination(ctx, *rq)
				if err != nil {
					return "", err
				}
				queries.Invalidate(editor.DestinationsKey())
				return "Created destination " + destination.Label(), nil
			}
		},
	}), nil
}

func newIntegrations(s screen) (tea.Model, error) {
	api, queries := s.deps.API, s.deps.Queries
	return newResourceList(s, resource{
		title: "Notion integrations",
		load: func(ctx context.Context) ([]list.Item, error) {
			integrations, err := query.Fetch(ctx, queries, editor.IntegrationsKey(), api.GetNotionIntegrations)
			if err != nil {
				return nil, err
			}
			items := make([]list.Item, 0, len(integrations))
			for _, integration := range integrations {
				items = append(items, item{
					id:          integration.ID,
					title:       integration.IntegrationName,
					description: "added " + humanize.Time(integration.CreatedAt),
				})
			}
			return items, nil
		},
		remove: func(ctx context.Context, id string) error {
			if err := api.DeleteNotionIntegration(ctx, id); err != nil {
				return err
			}
			queries.Invalidate(editor.IntegrationsKey())
			queries.Invalidate(editor.DatabasesKey(id))
			return nil
		},
		create: func() (*huh.Form, func(ctx context.Context) (string, error)) {
			rq := &notifier.NotionIntegrationCreateRequest{}
			return IntegrationForm(rq), func(ctx context.Context) (string, error) {
				integration, err := api.CreateNotionIntegration(ctx, *rq)
				if err != nil {
					return "", err
				}
				queries.Invalidate(editor.IntegrationsKey())
				return "Added integration " + integration.IntegrationName, nil
			}
		},
	}), nil
}
