package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
)

type signedInMsg struct {
	email string
	err   error
}

type signedOutMsg struct {
	err error
}

var logoutKey = key.NewBinding(
	key.WithKeys("l"),
	key.WithHelp("l", "log out"),
)

func newAccount(s screen) (tea.Model, error) {
	m := accountModel{
		screen: s,
		keys:   defaultKeyMap,
	}
	if s.deps.Identity.Session() == nil {
		m.openLogin()
	}
	return m, nil
}

type accountModel struct {
	screen
	keys keyMap

	form     *huh.Form
	email    *string
	password *string

	status string
	err    error
}

func (m *accountModel) openLogin() {
	m.email, m.password = new(string), new(string)
	m.form = LoginForm(m.email, m.password)
}

func (m accountModel) Init() tea.Cmd {
	if m.form != nil {
		return m.form.Init()
	}
	return nil
}

func (m accountModel) signIn() tea.Cmd {
	store := m.deps.Identity
	ctx := m.deps.Ctx
	email, password := strings.TrimSpace(*m.email), *m.password
	return func() tea.Msg {
		session, err := store.SignIn(ctx, email, password)
		if err != nil {
			return signedInMsg{err: err}
		}
		return signedInMsg{email: session.Email}
	}
}

func (m accountModel) signOut() tea.Cmd {
	store := m.deps.Identity
	return func() tea.Msg {
		return signedOutMsg{err: store.SignOut()}
	}
}

func (m accountModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case signedInMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "Logged in as " + msg.email
		}
		return m, nil

	case signedOutMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "Logged out"
		}
		return m, nil
	}

	if m.form != nil {
		if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
			m.form = nil
			return m.back(m)
		}
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		if m.form.State == huh.StateCompleted {
			m.form = nil
			return m, m.signIn()
		}
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			return m.back(m)

		case key.Matches(msg, logoutKey) && m.deps.Identity.Session() != nil:
			return m, m.signOut()

		case msg.String() == "enter" && m.deps.Identity.Session() == nil:
			m.status, m.err = "", nil
			m.openLogin()
			return m, m.form.Init()
		}
	}
	return m, nil
}

func (m accountModel) View() string {
	if m.form != nil {
		return AppStyle.Render(boxStyle.Render(m.form.View()) + HelpStyle.Render(mutedStyle.Render("esc: back")))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Account"))
	b.WriteString("\n\n")
	if session := m.deps.Identity.Session(); session != nil {
		b.WriteString(labelStyle.Render("Email") + session.Email + "\n")
		b.WriteString(labelStyle.Render("User ID") + session.UserID + "\n")
		b.WriteString(labelStyle.Render("Token expires") + humanize.Time(session.ExpiresAt) + "\n")
	} else {
		b.WriteString(mutedStyle.Render("Not logged in, press enter to log in") + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.status != "":
		b.WriteString("\n" + successStyle.Render(m.status) + "\n")
	}
	b.WriteString(HelpStyle.Render("l: log out • b: back • q: quit"))
	return AppStyle.Render(b.String())
}

