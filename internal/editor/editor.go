package editor

import (
	"context"
	"errors"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/notifier-app/notifier/internal/flags"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
)

var (
	ErrNotReady              = errors.New("template is still loading")
	ErrConditionsUnavailable = errors.New("conditions need a selected database with loaded properties")
	ErrConditionIndex        = errors.New("condition index out of range")
	ErrSubmissionPending     = errors.New("template submission is already pending")
)

// API is the part of the notifier backend the editor reads from and writes to.
type API interface {
	GetTemplate(ctx context.Context, id string) (*notifier.Template, error)
	CreateTemplate(ctx context.Context, rq notifier.TemplateRequest) (*notifier.Template, error)
	UpdateTemplate(ctx context.Context, id string, rq notifier.TemplateRequest) (*notifier.Template, error)
	GetNotionIntegrations(ctx context.Context) ([]notifier.NotionIntegration, error)
	GetNotionDatabases(ctx context.Context, integrationID string) ([]notifier.NotionDatabase, error)
	GetNotionDatabaseProperties(ctx context.Context, integrationID string, databaseID string) ([]notifier.NotionProperty, error)
	GetDestinations(ctx context.Context) ([]notifier.Destination, error)
}

func TemplatesKey() query.Key {
	return query.NewKey("templates")
}

func TemplateKey(id string) query.Key {
	return query.NewKey("template", id)
}

func IntegrationsKey() query.Key {
	return query.NewKey("notionIntegrations")
}

func DestinationsKey() query.Key {
	return query.NewKey("destinations")
}

func DatabasesKey(integrationID string) query.Key {
	return query.NewKey("notionDatabases", integrationID)
}

func PropertiesKey(integrationID string, databaseID string) query.Key {
	return query.NewKey("notionProperties", integrationID, databaseID)
}

// Resource names one of the remote data sets the editor depends on.
type Resource int

const (
	ResourceIntegrations Resource = iota
	ResourceDestinations
	ResourceDatabases
	ResourceProperties
	ResourceTemplate
)

func (r Resource) String() string {
	switch r {
	case ResourceIntegrations:
		return "integrations"
	case ResourceDestinations:
		return "destinations"
	case ResourceDatabases:
		return "databases"
	case ResourceProperties:
		return "properties"
	case ResourceTemplate:
		return "template"
	}
	return "unknown"
}

// Field marks draft fields changed by the user.
type Field uint8

const (
	FieldName Field = 1 << iota
	FieldIntegration
	FieldDatabase
	FieldConditions
	FieldBody
	FieldDestination
)

func (f Field) Has(field Field) bool {
	return flags.Has(f, field)
}

type fetchedMsg struct {
	resource Resource
	key      query.Key
	data     any
	err      error
}

type Option func(e *Editor)

// WithTemplate puts the editor in edit mode for the template with the given id.
func WithTemplate(id string) Option {
	return func(e *Editor) {
		e.templateID = id
	}
}

// WithDraft resumes a locally saved draft instead of loading the template.
func WithDraft(draft notifier.Draft) Option {
	return func(e *Editor) {
		e.resume = &draft
	}
}

func New(ctx context.Context, api API, queries *query.Client, opts ...Option) (*Editor, error) {
	e := &Editor{
		ctx:     ctx,
		api:     api,
		queries: queries,
		draft: notifier.TemplateRequest{
			Conditions: notifier.Conditions{},
		},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.resume != nil {
		rq, err := e.resume.Request()
		if err != nil {
			return nil, err
		}
		e.templateID = e.resume.TemplateID
		e.initialize(rq)
	} else if e.templateID == "" {
		e.ready = true
	}
	return e, nil
}

// Editor is the state of a notification template draft bound to the remote data it depends on.
// It must only be used from a single goroutine, results of remote reads are applied via Update.
type Editor struct {
	ctx        context.Context
	api        API
	queries    *query.Client
	templateID string
	resume     *notifier.Draft

	ready bool
	draft notifier.TemplateRequest
	dirty Field

	submission Submission
	result     *notifier.Template

	integrations query.Observer[[]notifier.NotionIntegration]
	destinations query.Observer[[]notifier.Destination]
	databases    query.Observer[[]notifier.NotionDatabase]
	properties   query.Observer[[]notifier.NotionProperty]
	template     query.Observer[*notifier.Template]
}

// Init starts the independent reads and, in edit mode, the template read.
func (e *Editor) Init() tea.Cmd {
	e.integrations.SetKey(IntegrationsKey())
	e.destinations.SetKey(DestinationsKey())
	cmds := []tea.Cmd{e.loadIntegrations(), e.loadDestinations()}
	if !e.ready {
		e.template.SetKey(TemplateKey(e.templateID))
		cmds = append(cmds, e.loadTemplate())
	}
	cmds = append(cmds, e.sync())
	return tea.Batch(cmds...)
}

// Update applies messages produced by the editor's commands and ignores everything else.
func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case fetchedMsg:
		return e.apply(msg)
	case submittedMsg:
		e.finish(msg)
	}
	return nil
}

func (e *Editor) apply(msg fetchedMsg) tea.Cmd {
	switch msg.resource {
	case ResourceIntegrations:
		resolve(&e.integrations, msg)
	case ResourceDestinations:
		resolve(&e.destinations, msg)
	case ResourceDatabases:
		resolve(&e.databases, msg)
	case ResourceProperties:
		resolve(&e.properties, msg)
	case ResourceTemplate:
		if resolve(&e.template, msg) {
			return e.initializeFromTemplate()
		}
	}
	return nil
}

func resolve[T any](o *query.Observer[T], msg fetchedMsg) bool {
	data, _ := msg.data.(T)
	return o.Resolve(msg.key, data, msg.err)
}

func (e *Editor) initializeFromTemplate() tea.Cmd {
	if e.ready || !e.template.Success() || e.template.Data() == nil {
		return nil
	}
	t := e.template.Data()
	e.initialize(notifier.TemplateRequest{
		Name:                    t.Name,
		UserNotionIntegrationID: t.UserNotionIntegrationID,
		NotionDatabaseID:        t.NotionDatabaseID,
		Conditions:              slices.Clone(t.Conditions),
		Body:                    t.Body,
		DestinationID:           t.DestinationID,
	})
	return e.sync()
}

// initialize sets the draft without running the cascade of the selection setters.
func (e *Editor) initialize(rq notifier.TemplateRequest) {
	if rq.Conditions == nil {
		rq.Conditions = notifier.Conditions{}
	}
	e.draft = rq
	e.dirty = 0
	e.ready = true
}

// sync moves the dependent observers to the keys of the current selection and loads them.
func (e *Editor) sync() tea.Cmd {
	var cmds []tea.Cmd
	if e.databases.SetKey(DatabasesKey(e.draft.UserNotionIntegrationID)) {
		cmds = append(cmds, e.loadDatabases())
	}
	if e.properties.SetKey(PropertiesKey(e.draft.UserNotionIntegrationID, e.draft.NotionDatabaseID)) {
		cmds = append(cmds, e.loadProperties())
	}
	return tea.Batch(cmds...)
}

func load[T any](e *Editor, o *query.Observer[T], resource Resource, fn func(ctx context.Context) (T, error)) tea.Cmd {
	key := o.Key()
	if !key.Ready() {
		return nil
	}
	if data, ok := query.Peek[T](e.queries, key); ok {
		o.Resolve(key, data, nil)
		return nil
	}
	o.Start()

	ctx := e.ctx
	queries := e.queries
	return func() tea.Msg {
		data, err := query.Fetch(ctx, queries, key, fn)
		return fetchedMsg{
			resource: resource,
			key:      key,
			data:     data,
			err:      err,
		}
	}
}

func (e *Editor) loadIntegrations() tea.Cmd {
	return load(e, &e.integrations, ResourceIntegrations, e.api.GetNotionIntegrations)
}

func (e *Editor) loadDestinations() tea.Cmd {
	return load(e, &e.destinations, ResourceDestinations, e.api.GetDestinations)
}

func (e *Editor) loadDatabases() tea.Cmd {
	integrationID := e.draft.UserNotionIntegrationID
	return load(e, &e.databases, ResourceDatabases, func(ctx context.Context) ([]notifier.NotionDatabase, error) {
		return e.api.GetNotionDatabases(ctx, integrationID)
	})
}

func (e *Editor) loadProperties() tea.Cmd {
	integrationID := e.draft.UserNotionIntegrationID
	databaseID := e.draft.NotionDatabaseID
	return load(e, &e.properties, ResourceProperties, func(ctx context.Context) ([]notifier.NotionProperty, error) {
		return e.api.GetNotionDatabaseProperties(ctx, integrationID, databaseID)
	})
}

func (e *Editor) loadTemplate() tea.Cmd {
	id := e.templateID
	cmd := load(e, &e.template, ResourceTemplate, func(ctx context.Context) (*notifier.Template, error) {
		return e.api.GetTemplate(ctx, id)
	})
	return tea.Batch(cmd, e.initializeFromTemplate())
}

// Retry reloads every data set whose last read failed.
func (e *Editor) Retry() tea.Cmd {
	var cmds []tea.Cmd
	if e.integrations.Failed() {
		cmds = append(cmds, e.loadIntegrations())
	}
	if e.destinations.Failed() {
		cmds = append(cmds, e.loadDestinations())
	}
	if e.databases.Failed() {
		cmds = append(cmds, e.loadDatabases())
	}
	if e.properties.Failed() {
		cmds = append(cmds, e.loadProperties())
	}
	if e.template.Failed() {
		cmds = append(cmds, e.loadTemplate())
	}
	return tea.Batch(cmds...)
}

func (e *Editor) Ready() bool {
	return e.ready
}

func (e *Editor) Editing() bool {
	return e.templateID != ""
}

func (e *Editor) TemplateID() string {
	return e.templateID
}

// DraftID returns the id of the resumed local draft, if any.
func (e *Editor) DraftID() string {
	if e.resume == nil {
		return ""
	}
	return e.resume.ID
}

func (e *Editor) Dirty() Field {
	return e.dirty
}

// Draft returns a copy of the current draft as it would be submitted.
func (e *Editor) Draft() notifier.TemplateRequest {
	rq := e.draft
	rq.Conditions = slices.Clone(e.draft.Conditions)
	if rq.Conditions == nil {
		rq.Conditions = notifier.Conditions{}
	}
	return rq
}

func (e *Editor) Status(resource Resource) query.Status {
	switch resource {
	case ResourceIntegrations:
		return e.integrations.Status()
	case ResourceDestinations:
		return e.destinations.Status()
	case ResourceDatabases:
		return e.databases.Status()
	case ResourceProperties:
		return e.properties.Status()
	case ResourceTemplate:
		return e.template.Status()
	}
	return query.StatusIdle
}

func (e *Editor) Err(resource Resource) error {
	switch resource {
	case ResourceIntegrations:
		return e.integrations.Err()
	case ResourceDestinations:
		return e.destinations.Err()
	case ResourceDatabases:
		return e.databases.Err()
	case ResourceProperties:
		return e.properties.Err()
	case ResourceTemplate:
		return e.template.Err()
	}
	return nil
}

func (e *Editor) Properties() []notifier.NotionProperty {
	return e.properties.Data()
}

func (e *Editor) SetName(name string) error {
	if !e.ready {
		return ErrNotReady
	}
	e.draft.Name = name
	e.dirty = flags.Add(e.dirty, FieldName)
	return nil
}

func (e *Editor) SetBody(body string) error {
	if !e.ready {
		return ErrNotReady
	}
	e.draft.Body = body
	e.dirty = flags.Add(e.dirty, FieldBody)
	return nil
}

func (e *Editor) SetDestination(id string) error {
	if !e.ready {
		return ErrNotReady
	}
	e.draft.DestinationID = id
	e.dirty = flags.Add(e.dirty, FieldDestination)
	return nil
}

// SelectIntegration changes the integration. Any change clears the database and the conditions.
func (e *Editor) SelectIntegration(id string) (tea.Cmd, error) {
	if !e.ready {
		return nil, ErrNotReady
	}
	if id == e.draft.UserNotionIntegrationID {
		return nil, nil
	}
	e.draft.UserNotionIntegrationID = id
	e.draft.NotionDatabaseID = ""
	e.draft.Conditions = notifier.Conditions{}
	e.dirty = flags.Add(e.dirty, FieldIntegration, FieldDatabase, FieldConditions)
	return e.sync(), nil
}

// SelectDatabase changes the database. Any change clears the conditions.
func (e *Editor) SelectDatabase(id string) (tea.Cmd, error) {
	if !e.ready {
		return nil, ErrNotReady
	}
	if id == e.draft.NotionDatabaseID {
		return nil, nil
	}
	e.draft.NotionDatabaseID = id
	e.draft.Conditions = notifier.Conditions{}
	e.dirty = flags.Add(e.dirty, FieldDatabase, FieldConditions)
	return e.sync(), nil
}
