package tui

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
)

type rowKind int

const (
	rowName rowKind = iota
	rowIntegration
	rowDatabase
	rowCondition
	rowAddCondition
	rowBody
	rowDestination
	rowSubmit
)

type row struct {
	kind  rowKind
	index int
}

type draftSavedMsg struct {
	id  string
	err error
}

// NewEditor returns the template editor screen on its own, it quits once the template is saved.
func NewEditor(ed *editor.Editor) tea.Model {
	return newEditorModel(screen{}, ed)
}

func newTemplateEditor(s screen) (tea.Model, error) {
	ed, err := editor.New(s.deps.Ctx, s.deps.API, s.deps.Queries)
	if err != nil {
		return nil, err
	}
	return newEditorModel(s, ed), nil
}

func newEditorModel(s screen, ed *editor.Editor) editorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return editorModel{
		screen:  s,
		keys:    editorKeys{keyMap: defaultKeyMap},
		help:    help.New(),
		spinner: sp,
		ed:      ed,
		draftID: ed.DraftID(),
	}
}

type editorModel struct {
	screen
	keys    editorKeys
	help    help.Model
	spinner spinner.Model
	ed      *editor.Editor

	cursor int
	form   *huh.Form
	// apply receives the model current when the form completes.
	apply func(m *editorModel) tea.Cmd

	// errs is set by a rejected submit and refreshed on every change afterwards.
	errs     notifier.ValidationErrors
	warnings []string
	status   string
	draftID  string
}

func (m editorModel) Init() tea.Cmd {
	return tea.Batch(m.ed.Init(), m.spinner.Tick)
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	pending := m.ed.Submission().Status == editor.SubmissionPending
	cmds := []tea.Cmd{m.ed.Update(msg)}

	if pending && m.ed.Submission().Status != editor.SubmissionPending {
		if m.ed.Done() {
			return m.finish()
		}
		m.status = "Failed to save template: " + m.ed.Submission().Reason
		cmds = append(cmds, m.saveDraft())
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case draftSavedMsg:
		if msg.err != nil {
			log.Printf("failed to save draft: %s", msg.err)
			break
		}
		m.draftID = msg.id
		m.status += ", saved as draft " + msg.id
	}

	if m.form != nil {
		return m.updateForm(msg, cmds)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, tea.Batch(cmds...)
	}

	switch {
	case keyMsg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Back):
		if m.ed.Submission().Status == editor.SubmissionPending {
			break
		}
		return m.back(m)

	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(keyMsg, m.keys.Up):
		m.cursor--

	case key.Matches(keyMsg, m.keys.Down):
		m.cursor++

	case key.Matches(keyMsg, m.keys.Reload):
		m.status = ""
		cmds = append(cmds, m.ed.Retry())

	case key.Matches(keyMsg, m.keys.Submit):
		cmds = append(cmds, m.submit())

	case key.Matches(keyMsg, m.keys.AddCondition):
		cmds = append(cmds, m.addCondition())

	case key.Matches(keyMsg, m.keys.Delete):
		if r := m.currentRow(); r.kind == rowCondition {
			m.setErr(m.ed.RemoveCondition(r.index))
		}

	case key.Matches(keyMsg, m.keys.Edit):
		cmds = append(cmds, m.edit(m.currentRow()))
	}
	m.clampCursor()
	return m, tea.Batch(cmds...)
}

func (m *editorModel) clampCursor() {
	rows := m.rows()
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m editorModel) rows() []row {
	rows := []row{{kind: rowName}, {kind: rowIntegration}, {kind: rowDatabase}}
	for i := range m.ed.Draft().Conditions {
		rows = append(rows, row{kind: rowCondition, index: i})
	}
	return append(rows, row{kind: rowAddCondition}, row{kind: rowBody}, row{kind: rowDestination}, row{kind: rowSubmit})
}

func (m editorModel) currentRow() row {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return row{kind: rowName}
	}
	return rows[m.cursor]
}

func (m *editorModel) revalidate() {
	if m.errs == nil {
		return
	}
	var errs notifier.ValidationErrors
	if errors.As(m.ed.Validate(), &errs) {
		m.errs = errs
		return
	}
	m.errs = notifier.ValidationErrors{}
}

func (m *editorModel) submit() tea.Cmd {
	cmd, err := m.ed.Submit()
	if err != nil {
		var errs notifier.ValidationErrors
		if errors.As(err, &errs) {
			m.errs = errs
			m.status = "Fix the highlighted fields"
			return nil
		}
		m.status = err.Error()
		return nil
	}
	m.status = ""
	m.errs = nil
	return cmd
}

func (m editorModel) finish() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.deleteDraft()}
	if m.parent == nil {
		return m, tea.Batch(append(cmds, tea.Quit)...)
	}
	parent, cmd := m.back(m)
	return parent, tea.Batch(append(cmds, cmd)...)
}

func (m editorModel) saveDraft() tea.Cmd {
	drafts := m.deps.Drafts
	if drafts == nil {
		return nil
	}
	ctx := m.deps.Ctx
	templateID := m.ed.TemplateID()
	rq := m.ed.Draft()
	cause := m.ed.Submission().Err
	draftID := m.draftID
	return func() tea.Msg {
		draft, err := notifier.NewDraft(templateID, rq, cause)
		if err != nil {
			return draftSavedMsg{err: err}
		}
		draft.ID = draftID
		saved, err := drafts.SaveDraft(ctx, draft)
		if err != nil {
			return draftSavedMsg{err: err}
		}
		return draftSavedMsg{id: saved.ID}
	}
}

func (m editorModel) deleteDraft() tea.Cmd {
	drafts := m.deps.Drafts
	if drafts == nil || m.draftID == "" {
		return nil
	}
	ctx := m.deps.Ctx
	draftID := m.draftID
	return func() tea.Msg {
		if err := drafts.DeleteDraft(ctx, draftID); err != nil && !errors.Is(err, notifier.ErrDraftNotFound) {
			log.Printf("failed to remove draft %s: %s", draftID, err)
		}
		return nil
	}
}

func (m *editorModel) addCondition() tea.Cmd {
	if err := m.ed.AddCondition(); err != nil {
		m.status = err.Error()
		return nil
	}
	m.revalidate()
	index := len(m.ed.Draft().Conditions) - 1
	for i, r := range m.rows() {
		if r.kind == rowCondition && r.index == index {
			m.cursor = i
		}
	}
	return m.edit(row{kind: rowCondition, index: index})
}

// loadedChoices returns the choices of resource once they are loaded, otherwise it sets the status.
func (m *editorModel) loadedChoices(resource editor.Resource, choices func() []editor.Choice, missing string) ([]huh.Option[string], bool) {
	switch m.ed.Status(resource) {
	case query.StatusSuccess:
	case query.StatusLoading:
		m.status = fmt.Sprintf("The %s are still loading", resource)
		return nil, false
	case query.StatusError:
		m.status = fmt.Sprintf("Failed to load %s, press r to retry", resource)
		return nil, false
	default:
		m.status = missing
		return nil, false
	}
	options := make([]huh.Option[string], 0)
	for _, choice := range choices() {
		options = append(options, huh.NewOption(choice.Label, choice.Value))
	}
	if len(options) == 0 {
		m.status = fmt.Sprintf("There are no %s to choose from", resource)
		return nil, false
	}
	return options, true
}

// edit opens the form for the field of r.
func (m *editorModel) edit(r row) tea.Cmd {
	if !m.ed.Ready() {
		return nil
	}
	draft := m.ed.Draft()
	m.status = ""

	switch r.kind {
	case rowName:
		name := &draft.Name
		m.open(huh.NewInput().Title("Name").Value(name).Validate(required), func(m *editorModel) tea.Cmd {
			m.setErr(m.ed.SetName(strings.TrimSpace(*name)))
			return nil
		})

	case rowIntegration:
		options, ok := m.loadedChoices(editor.ResourceIntegrations, m.ed.IntegrationChoices, "")
		if !ok {
			return nil
		}
		id := &draft.UserNotionIntegrationID
		m.open(huh.NewSelect[string]().
			Title("Notion integration").
			Description("Changing it clears the database and the conditions").
			Options(options...).
			Value(id), func(m *editorModel) tea.Cmd {
			cmd, err := m.ed.SelectIntegration(*id)
			m.setErr(err)
			return cmd
		})

	case rowDatabase:
		options, ok := m.loadedChoices(editor.ResourceDatabases, m.ed.DatabaseChoices, "Select an integration first")
		if !ok {
			return nil
		}
		id := &draft.NotionDatabaseID
		m.open(huh.NewSelect[string]().
			Title("Notion database").
			Description("Changing it clears the conditions").
			Options(options...).
			Value(id), func(m *editorModel) tea.Cmd {
			cmd, err := m.ed.SelectDatabase(*id)
			m.setErr(err)
			return cmd
		})

	case rowCondition:
		if r.index >= len(draft.Conditions) {
			return nil
		}
		options, ok := m.loadedChoices(editor.ResourceProperties, m.ed.PropertyChoices, "Select a database first")
		if !ok {
			return nil
		}
		operators := make([]huh.Option[string], 0, len(notifier.Operators))
		for _, choice := range m.ed.OperatorChoices() {
			operators = append(operators, huh.NewOption(choice.Label, choice.Value))
		}
		condition := draft.Conditions[r.index]
		propertyID := &condition.PropertyID
		operator := new(string)
		*operator = string(condition.Operator)
		value := &condition.Value
		index := r.index
		m.openGroup(huh.NewGroup(
			huh.NewSelect[string]().Title("Property").Options(options...).Value(propertyID),
			huh.NewSelect[string]().Title("Operator").Options(operators...).Value(operator),
			huh.NewInput().Title("Value").Value(value).Validate(required),
		).Title(fmt.Sprintf("Condition %d", index+1)), func(m *editorModel) tea.Cmd {
			m.setErr(errors.Join(
				m.ed.SetConditionProperty(index, *propertyID),
				m.ed.SetConditionOperator(index, notifier.Operator(*operator)),
				m.ed.SetConditionValue(index, *value),
			))
			return nil
		})

	case rowAddCondition:
		return m.addCondition()

	case rowBody:
		body := &draft.Body
		description := "Placeholders: " + strings.Join(notifier.PlaceholderSuggestions(m.ed.Properties()), " ")
		m.open(huh.NewText().Title("Message body").Description(description).Value(body).Validate(required), func(m *editorModel) tea.Cmd {
			m.setErr(m.ed.SetBody(*body))
			m.warnings = notifier.UnknownPlaceholders(*body, m.ed.Properties())
			return nil
		})

	case rowDestination:
		options, ok := m.loadedChoices(editor.ResourceDestinations, m.ed.DestinationChoices, "")
		if !ok {
			return nil
		}
		id := &draft.DestinationID
		m.open(huh.NewSelect[string]().Title("Destination").Options(options...).Value(id), func(m *editorModel) tea.Cmd {
			m.setErr(m.ed.SetDestination(*id))
			return nil
		})

	case rowSubmit:
		return m.submit()
	}

	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

func (m *editorModel) setErr(err error) {
	if err != nil {
		m.status = err.Error()
	}
	m.revalidate()
}

func (m *editorModel) open(field huh.Field, apply func(m *editorModel) tea.Cmd) {
	m.openGroup(huh.NewGroup(field), apply)
}

func (m *editorModel) openGroup(group *huh.Group, apply func(m *editorModel) tea.Cmd) {
	m.form = newForm(group)
	m.apply = apply
}

// updateForm forwards msg to the open form and applies its values once completed.
func (m editorModel) updateForm(msg tea.Msg, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.form, m.apply = nil, nil
		return m, tea.Batch(cmds...)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return m, tea.Batch(append(cmds, cmd)...)
	}

	// the completed form asks the program to quit, its command is dropped
	apply := m.apply
	m.form, m.apply = nil, nil
	cmds = append(cmds, apply(&m))
	m.clampCursor()
	return m, tea.Batch(cmds...)
}

func (m editorModel) View() string {
	var b strings.Builder
	title := "New template"
	if m.ed.Editing() {
		title = "Edit template"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	if !m.ed.Ready() {
		if m.ed.Status(editor.ResourceTemplate) == query.StatusError {
			b.WriteString(errorStyle.Render("Failed to load template: " + errorText(m.ed.Err(editor.ResourceTemplate))))
			b.WriteString("\n\n")
			b.WriteString(mutedStyle.Render("r: retry • esc: back"))
		} else {
			b.WriteString(m.spinner.View() + " Loading template...")
		}
		return AppStyle.Render(b.String())
	}

	if m.form != nil {
		b.WriteString(boxStyle.Render(m.form.View()))
		b.WriteString(HelpStyle.Render(mutedStyle.Render("esc: cancel")))
		return AppStyle.Render(b.String())
	}

	draft := m.ed.Draft()
	for i, r := range m.rows() {
		cursor := "  "
		if i == m.cursor {
			cursor = selectedStyle.Render("> ")
		}
		label, value, paths := m.renderRow(r, draft)
		if label != "" {
			b.WriteString(cursor + labelStyle.Render(label) + value + "\n")
		} else {
			b.WriteString(cursor + value + "\n")
		}
		for _, path := range paths {
			if msg, ok := m.errs[path]; ok {
				b.WriteString("    " + errorStyle.Render(msg) + "\n")
			}
		}
		if r.kind == rowBody {
			for _, name := range m.warnings {
				b.WriteString("    " + mutedStyle.Render("unknown placeholder: {"+name+"}") + "\n")
			}
		}
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status) + "\n")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return AppStyle.Render(b.String())
}

func (m editorModel) renderRow(r row, draft notifier.TemplateRequest) (string, string, []string) {
	switch r.kind {
	case rowName:
		return "Name", valueOr(draft.Name, "not set"), []string{"name"}

	case rowIntegration:
		return "Integration", m.selection(editor.ResourceIntegrations, m.ed.IntegrationChoices, draft.UserNotionIntegrationID, "not selected"), []string{"userNotionIntegrationId"}

	case rowDatabase:
		placeholder := "not selected"
		if draft.UserNotionIntegrationID == "" {
			placeholder = "select an integration first"
		}
		return "Database", m.selection(editor.ResourceDatabases, m.ed.DatabaseChoices, draft.NotionDatabaseID, placeholder), []string{"notionDatabaseId", editor.ConditionsRootPath}

	case rowCondition:
		condition := draft.Conditions[r.index]
		property := mutedStyle.Render("property?")
		if condition.PropertyID != "" {
			property = choiceLabel(m.ed.PropertyChoices(), condition.PropertyID)
			if property == "" {
				property = condition.PropertyID
			}
		}
		operator := mutedStyle.Render("operator?")
		if condition.Operator != "" {
			operator = condition.Operator.Label()
		}
		value := valueOr(fmt.Sprintf("%q", condition.Value), "")
		if condition.Value == "" {
			value = mutedStyle.Render("value?")
		}
		return fmt.Sprintf("  #%d", r.index+1), property + " " + operator + " " + value, []string{
			editor.ConditionPath(r.index, "propertyId"),
			editor.ConditionPath(r.index, "operator"),
			editor.ConditionPath(r.index, "value"),
		}

	case rowAddCondition:
		switch {
		case m.ed.CanAddCondition():
			return "", "+ add condition", nil
		case draft.NotionDatabaseID != "" && m.ed.Status(editor.ResourceProperties) == query.StatusLoading:
			return "", mutedStyle.Render("+ add condition (" + m.spinner.View() + " loading properties)"), nil
		case draft.NotionDatabaseID != "" && m.ed.Status(editor.ResourceProperties) == query.StatusError:
			return "", errorStyle.Render("+ add condition (failed to load properties: " + errorText(m.ed.Err(editor.ResourceProperties)) + ")"), nil
		case draft.NotionDatabaseID != "":
			return "", mutedStyle.Render("+ add condition (the database has no properties)"), nil
		}
		return "", mutedStyle.Render("+ add condition (select a database first)"), nil

	case rowBody:
		body := draft.Body
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[:i] + "..."
		}
		return "Body", valueOr(body, "not set"), []string{"body"}

	case rowDestination:
		return "Destination", m.selection(editor.ResourceDestinations, m.ed.DestinationChoices, draft.DestinationID, "not selected"), []string{"destinationId"}

	case rowSubmit:
		if m.ed.Submission().Status == editor.SubmissionPending {
			return "", "\n" + m.spinner.View() + " Saving...", nil
		}
		label := "Create template"
		if m.ed.Editing() {
			label = "Save template"
		}
		return "", "\n" + successStyle.Render("["+label+"]"), nil
	}
	return "", "", nil
}

// selection renders the selected value of a remote choice list together with its fetch state.
func (m editorModel) selection(resource editor.Resource, choices func() []editor.Choice, value string, placeholder string) string {
	switch m.ed.Status(resource) {
	case query.StatusLoading:
		return m.spinner.View() + mutedStyle.Render(" loading "+resource.String())
	case query.StatusError:
		return errorStyle.Render("failed to load " + resource.String() + ": " + errorText(m.ed.Err(resource)) + " (r to retry)")
	}
	if value == "" {
		return mutedStyle.Render(placeholder)
	}
	if label := choiceLabel(choices(), value); label != "" {
		return label
	}
	return value + mutedStyle.Render(" (unknown)")
}

func choiceLabel(choices []editor.Choice, value string) string {
	for _, choice := range choices {
		if choice.Value == value {
			return choice.Label
		}
	}
	return ""
}

func valueOr(value string, placeholder string) string {
	if value == "" {
		return mutedStyle.Render(placeholder)
	}
	return value
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
