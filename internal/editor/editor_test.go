package editor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier-app/notifier/internal/httperr"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
)

type fakeAPI struct {
	mu sync.Mutex

	templates    map[string]*notifier.Template
	integrations []notifier.NotionIntegration
	databases    map[string][]notifier.NotionDatabase
	properties   map[string][]notifier.NotionProperty
	destinations []notifier.Destination

	errs  map[string]error
	calls map[string]int

	created []notifier.TemplateRequest
	updated []notifier.TemplateRequest
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		templates: map[string]*notifier.Template{
			"t1": {
				ID:                      "t1",
				Name:                    "Done tasks",
				UserNotionIntegrationID: "A",
				NotionDatabaseID:        "D1",
				Conditions: notifier.Conditions{
					{PropertyID: "P1", Operator: notifier.OperatorEquals, Value: "Done"},
					{PropertyID: "P2", Operator: notifier.OperatorContains, Value: "urgent"},
				},
				Body:          "{Name} is done: {_pageUrl}",
				DestinationID: "dest-1",
			},
		},
		integrations: []notifier.NotionIntegration{
			{ID: "A", IntegrationName: "Work"},
			{ID: "B", IntegrationName: "Home"},
		},
		databases: map[string][]notifier.NotionDatabase{
			"A": {{ID: "D1", Name: "Tasks"}, {ID: "D2", Name: "Bugs"}},
			"B": {{ID: "D3", Name: "Groceries"}},
		},
		properties: map[string][]notifier.NotionProperty{
			"A/D1": {{ID: "P1", Name: "Status", Type: "status"}, {ID: "P2", Name: "Tags", Type: "multi_select"}},
			"A/D2": {{ID: "P3", Name: "Severity", Type: "select"}},
			"B/D3": {},
		},
		destinations: []notifier.Destination{
			{ID: "dest-1", Name: "Ops", WebhookURL: "https://hooks.example.com/ops"},
		},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeAPI) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	err := f.errs[name]
	return err
}

func (f *fakeAPI) setErr(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) GetTemplate(_ context.Context, id string) (*notifier.Template, error) {
	if err := f.call("template"); err != nil {
		return nil, err
	}
	t, ok := f.templates[id]
	if !ok {
		return nil, httperr.NotFound(errors.New("template not found"))
	}
	clone := *t
	clone.Conditions = append(notifier.Conditions{}, t.Conditions...)
	return &clone, nil
}

func (f *fakeAPI) CreateTemplate(_ context.Context, rq notifier.TemplateRequest) (*notifier.Template, error) {
	if err := f.call("create"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, rq)
	return &notifier.Template{ID: "new", Name: rq.Name}, nil
}

func (f *fakeAPI) UpdateTemplate(_ context.Context, id string, rq notifier.TemplateRequest) (*notifier.Template, error) {
	if err := f.call("update"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, rq)
	return &notifier.Template{ID: id, Name: rq.Name}, nil
}

func (f *fakeAPI) GetNotionIntegrations(context.Context) ([]notifier.NotionIntegration, error) {
	if err := f.call("integrations"); err != nil {
		return nil, err
	}
	return f.integrations, nil
}

func (f *fakeAPI) GetNotionDatabases(_ context.Context, integrationID string) ([]notifier.NotionDatabase, error) {
	if err := f.call("databases"); err != nil {
		return nil, err
	}
	return f.databases[integrationID], nil
}

func (f *fakeAPI) GetNotionDatabaseProperties(_ context.Context, integrationID string, databaseID string) ([]notifier.NotionProperty, error) {
	if err := f.call("properties"); err != nil {
		return nil, err
	}
	return f.properties[integrationID+"/"+databaseID], nil
}

func (f *fakeAPI) GetDestinations(context.Context) ([]notifier.Destination, error) {
	if err := f.call("destinations"); err != nil {
		return nil, err
	}
	return f.destinations, nil
}

func newEditor(t *testing.T, api *fakeAPI, opts ...Option) *Editor {
	t.Helper()
	e, err := New(context.Background(), api, query.NewClient(query.DefaultStaleTime), opts...)
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), e.Init()))
	return e
}

func settle(t *testing.T, e *Editor, cmd tea.Cmd, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), cmd))
}

func choiceValues(choices []Choice) []string {
	values := make([]string, 0, len(choices))
	for _, c := range choices {
		values = append(values, c.Value)
	}
	return values
}

func TestCreateLoadsIndependentData(t *testing.T) {
	api := newFakeAPI()
	e := newEditor(t, api)

	assert.True(t, e.Ready())
	assert.False(t, e.Editing())
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceIntegrations))
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceDestinations))
	assert.Equal(t, []string{"A", "B"}, choiceValues(e.IntegrationChoices()))
	assert.Equal(t, []Choice{{Label: "Ops", Value: "dest-1"}}, e.DestinationChoices())

	// dependent reads wait for their selection
	assert.Equal(t, query.StatusIdle, e.Status(ResourceDatabases))
	assert.Equal(t, query.StatusIdle, e.Status(ResourceProperties))
	assert.Zero(t, api.callCount("databases"))
	assert.Zero(t, api.callCount("properties"))
	assert.Zero(t, api.callCount("template"))

	cmd, err := e.SelectIntegration("A")
	settle(t, e, cmd, err)
	assert.Equal(t, []string{"D1", "D2"}, choiceValues(e.DatabaseChoices()))
	assert.Equal(t, query.StatusIdle, e.Status(ResourceProperties))
	assert.Zero(t, api.callCount("properties"))

	cmd, err = e.SelectDatabase("D1")
	settle(t, e, cmd, err)
	assert.Equal(t, []Choice{
		{Label: "Status (status)", Value: "P1"},
		{Label: "Tags (multi_select)", Value: "P2"},
	}, e.PropertyChoices())
}

func TestIntegrationChangeClearsDatabaseAndConditions(t *testing.T) {
	e := newEditor(t, newFakeAPI(), WithTemplate("t1"))
	require.Len(t, e.Draft().Conditions, 2)

	cmd, err := e.SelectIntegration("B")
	settle(t, e, cmd, err)
	draft := e.Draft()
	assert.Equal(t, "B", draft.UserNotionIntegrationID)
	assert.Empty(t, draft.NotionDatabaseID)
	assert.Empty(t, draft.Conditions)
	assert.NotNil(t, draft.Conditions)
	assert.Equal(t, []string{"D3"}, choiceValues(e.DatabaseChoices()))
	assert.Equal(t, query.StatusIdle, e.Status(ResourceProperties))

	// going back to the loaded integration does not bring anything back
	cmd, err = e.SelectIntegration("A")
	settle(t, e, cmd, err)
	draft = e.Draft()
	assert.Empty(t, draft.NotionDatabaseID)
	assert.Empty(t, draft.Conditions)
	assert.True(t, e.Dirty().Has(FieldIntegration|FieldDatabase|FieldConditions))
}

func TestDatabaseChangeClearsConditionsOnly(t *testing.T) {
	e := newEditor(t, newFakeAPI(), WithTemplate("t1"))

	cmd, err := e.SelectDatabase("D2")
	settle(t, e, cmd, err)
	draft := e.Draft()
	assert.Equal(t, "A", draft.UserNotionIntegrationID)
	assert.Equal(t, "D2", draft.NotionDatabaseID)
	assert.Empty(t, draft.Conditions)
	assert.Equal(t, "Done tasks", draft.Name)
	assert.Equal(t, []string{"P3"}, choiceValues(e.PropertyChoices()))
	assert.False(t, e.Dirty().Has(FieldIntegration))
}

func TestSelectingSameValueKeepsConditions(t *testing.T) {
	e := newEditor(t, newFakeAPI(), WithTemplate("t1"))

	cmd, err := e.SelectIntegration("A")
	require.NoError(t, err)
	assert.Nil(t, cmd)
	cmd, err = e.SelectDatabase("D1")
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Len(t, e.Draft().Conditions, 2)
	assert.Zero(t, e.Dirty())
}

func TestEditLoadKeepsConditions(t *testing.T) {
	api := newFakeAPI()
	e := newEditor(t, api, WithTemplate("t1"))

	assert.True(t, e.Ready())
	assert.True(t, e.Editing())
	assert.Zero(t, e.Dirty())
	assert.Equal(t, api.templates["t1"].Conditions, e.Draft().Conditions)
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceDatabases))
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceProperties))
	assert.NoError(t, e.Validate())
	assert.Equal(t, 1, api.callCount("template"))
}

func TestEditRejectsMutationsBeforeLoad(t *testing.T) {
	e, err := New(context.Background(), newFakeAPI(), query.NewClient(0), WithTemplate("t1"))
	require.NoError(t, err)
	cmd := e.Init()

	assert.False(t, e.Ready())
	assert.ErrorIs(t, e.SetName("x"), ErrNotReady)
	_, err = e.SelectIntegration("B")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = e.SelectDatabase("D2")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, e.AddCondition(), ErrConditionsUnavailable)
	_, err = e.Submit()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, e.Settle(context.Background(), cmd))
	assert.True(t, e.Ready())
	assert.Len(t, e.Draft().Conditions, 2)
}

func TestEditTemplateLoadFailure(t *testing.T) {
	api := newFakeAPI()
	api.setErr("template", httperr.New(errors.New("boom"), http.StatusInternalServerError))
	e := newEditor(t, api, WithTemplate("t1"))

	assert.False(t, e.Ready())
	assert.Equal(t, query.StatusError, e.Status(ResourceTemplate))
	assert.Error(t, e.Err(ResourceTemplate))

	api.setErr("template", nil)
	require.NoError(t, e.Settle(context.Background(), e.Retry()))
	assert.True(t, e.Ready())
	assert.Len(t, e.Draft().Conditions, 2)
}

func TestResumeDraft(t *testing.T) {
	rq := notifier.TemplateRequest{
		Name:                    "Draft",
		UserNotionIntegrationID: "A",
		NotionDatabaseID:        "D2",
		Conditions:              notifier.Conditions{{PropertyID: "P3", Operator: notifier.OperatorNotEquals, Value: "low"}},
		Body:                    "{Severity}",
		DestinationID:           "dest-1",
	}
	draft, err := notifier.NewDraft("t1", rq, errors.New("boom"))
	require.NoError(t, err)
	draft.ID = "draft-1"

	api := newFakeAPI()
	e := newEditor(t, api, WithDraft(draft))
	assert.True(t, e.Ready())
	assert.Equal(t, "t1", e.TemplateID())
	assert.Equal(t, "draft-1", e.DraftID())
	assert.Equal(t, rq, e.Draft())
	assert.Zero(t, api.callCount("template"))
	assert.Equal(t, []string{"P3"}, choiceValues(e.PropertyChoices()))
}

func TestScenarioDatabaseToggleDiscardsConditions(t *testing.T) {
	e := newEditor(t, newFakeAPI())

	cmd, err := e.SelectIntegration("A")
	settle(t, e, cmd, err)
	cmd, err = e.SelectDatabase("D1")
	settle(t, e, cmd, err)
	assert.Equal(t, []string{"P1", "P2"}, choiceValues(e.PropertyChoices()))

	require.NoError(t, e.AddCondition())
	require.NoError(t, e.SetConditionProperty(0, "P1"))
	require.NoError(t, e.SetConditionOperator(0, notifier.OperatorEquals))
	require.NoError(t, e.SetConditionValue(0, "Done"))

	cmd, err = e.SelectDatabase("D2")
	settle(t, e, cmd, err)
	assert.Empty(t, e.Draft().Conditions)

	cmd, err = e.SelectDatabase("D1")
	settle(t, e, cmd, err)
	assert.Empty(t, e.Draft().Conditions)
	assert.Equal(t, []string{"P1", "P2"}, choiceValues(e.PropertyChoices()))
}

func TestStaleDatabasesResponseIsDropped(t *testing.T) {
	e := newEditor(t, newFakeAPI())

	cmdA, err := e.SelectIntegration("A")
	require.NoError(t, err)
	cmdB, err := e.SelectIntegration("B")
	require.NoError(t, err)
	require.NotNil(t, cmdA)
	require.NotNil(t, cmdB)

	// B answers first, the late answer for A must not replace it
	require.NoError(t, e.Settle(context.Background(), cmdB))
	assert.Equal(t, []string{"D3"}, choiceValues(e.DatabaseChoices()))
	require.NoError(t, e.Settle(context.Background(), cmdA))
	assert.Equal(t, []string{"D3"}, choiceValues(e.DatabaseChoices()))
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceDatabases))
}

func TestStalePropertiesResponseIsDropped(t *testing.T) {
	e := newEditor(t, newFakeAPI())
	cmd, err := e.SelectIntegration("A")
	settle(t, e, cmd, err)

	cmdD1, err := e.SelectDatabase("D1")
	require.NoError(t, err)
	cmdD2, err := e.SelectDatabase("D2")
	require.NoError(t, err)

	require.NoError(t, e.Settle(context.Background(), cmdD2))
	require.NoError(t, e.Settle(context.Background(), cmdD1))
	assert.Equal(t, []string{"P3"}, choiceValues(e.PropertyChoices()))
}

func TestAddConditionAvailability(t *testing.T) {
	api := newFakeAPI()
	e := newEditor(t, api)

	// no database
	assert.False(t, e.CanAddCondition())
	assert.ErrorIs(t, e.AddCondition(), ErrConditionsUnavailable)

	cmd, err := e.SelectIntegration("A")
	settle(t, e, cmd, err)
	assert.ErrorIs(t, e.AddCondition(), ErrConditionsUnavailable)

	// loading
	cmd, err = e.SelectDatabase("D1")
	require.NoError(t, err)
	assert.Equal(t, query.StatusLoading, e.Status(ResourceProperties))
	assert.False(t, e.CanAddCondition())
	require.NoError(t, e.Settle(context.Background(), cmd))
	assert.True(t, e.CanAddCondition())
	require.NoError(t, e.AddCondition())
	assert.Equal(t, notifier.Conditions{{}}, e.Draft().Conditions)

	// errored
	api.setErr("properties", httperr.New(errors.New("notion unavailable"), http.StatusBadGateway))
	cmd, err = e.SelectDatabase("D2")
	settle(t, e, cmd, err)
	assert.Equal(t, query.StatusError, e.Status(ResourceProperties))
	assert.EqualError(t, e.Err(ResourceProperties), "notion unavailable")
	assert.False(t, e.CanAddCondition())
	assert.Empty(t, e.PropertyChoices())

	api.setErr("properties", nil)
	require.NoError(t, e.Settle(context.Background(), e.Retry()))
	assert.True(t, e.CanAddCondition())

	// empty property set
	cmd, err = e.SelectIntegration("B")
	settle(t, e, cmd, err)
	cmd, err = e.SelectDatabase("D3")
	settle(t, e, cmd, err)
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceProperties))
	assert.False(t, e.CanAddCondition())
}

func TestFetchFailureDoesNotBlockOtherFields(t *testing.T) {
	api := newFakeAPI()
	api.setErr("integrations", errors.New("offline"))
	e := newEditor(t, api)

	assert.Equal(t, query.StatusError, e.Status(ResourceIntegrations))
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceDestinations))
	assert.NoError(t, e.SetName("still editable"))
	assert.NoError(t, e.SetDestination("dest-1"))

	api.setErr("integrations", nil)
	require.NoError(t, e.Settle(context.Background(), e.Retry()))
	assert.Equal(t, query.StatusSuccess, e.Status(ResourceIntegrations))
	assert.Equal(t, 2, api.callCount("integrations"))
	assert.Equal(t, 1, api.callCount("destinations"))
}

func TestRemoveConditionKeepsOrder(t *testing.T) {
	e := newEditor(t, newFakeAPI())
	cmd, err := e.SelectIntegration("A")
	settle(t, e, cmd, err)
	cmd, err = e.SelectDatabase("D1")
	settle(t, e, cmd, err)

	for i, value := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.AddCondition())
		require.NoError(t, e.SetConditionValue(i, value))
	}

	tests := []struct {
		index int
		want  []string
	}{
		{index: 1, want: []string{"a", "c", "d"}},
		{index: 2, want: []string{"a", "c"}},
		{index: 0, want: []string{"c"}},
		{index: 0, want: []string{}},
	}
	for _, tt := range tests {
		require.NoError(t, e.RemoveCondition(tt.index))
		values := []string{}
		for _, c := range e.Draft().Conditions {
			values = append(values, c.Value)
		}
		assert.Equal(t, tt.want, values)
	}

	assert.ErrorIs(t, e.RemoveCondition(0), ErrConditionIndex)
	assert.ErrorIs(t, e.RemoveCondition(-1), ErrConditionIndex)
	assert.ErrorIs(t, e.SetConditionValue(3, "x"), ErrConditionIndex)
}

func TestRemoveConditionWhileLoading(t *testing.T) {
	e, err := New(context.Background(), newFakeAPI(), query.NewClient(0), WithTemplate("t1"))
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), e.Init()))

	// nothing failed
	assert.Nil(t, e.Retry())

	// properties are reloading after a cache invalidation, removal stays possible
	e.properties.Start()
	assert.True(t, e.properties.Loading())
	require.NoError(t, e.RemoveCondition(0))
	assert.Equal(t, "P2", e.Draft().Conditions[0].PropertyID)
}

func TestValidateLocalizesRowErrors(t *testing.T) {
	e := newEditor(t, newFakeAPI(), WithTemplate("t1"))
	require.NoError(t, e.AddCondition())

	err := e.Validate()
	require.Error(t, err)
	var errs notifier.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, notifier.ValidationErrors{
		"conditions.2.propertyId": "Property is required.",
		"conditions.2.operator":   "Operator is required.",
		"conditions.2.value":      "Value is required.",
	}, errs)

	_, err = e.Submit()
	assert.ErrorAs(t, err, &errs)
	assert.Equal(t, SubmissionIdle, e.Submission().Status)
}

func TestValidateFields(t *testing.T) {
	e := newEditor(t, newFakeAPI())

	err := e.Validate()
	var errs notifier.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, notifier.ValidationErrors{
		"name":                    "Template name is required.",
		"userNotionIntegrationId": "Notion integration is required.",
		"notionDatabaseId":        "Notion database is required.",
		"body":                    "Message body is required.",
		"destinationId":           "Destination is required.",
	}, errs)
}

func TestValidateUnknownProperty(t *testing.T) {
	api := newFakeAPI()
	api.properties["A/D1"] = api.properties["A/D1"][:1]
	e := newEditor(t, api, WithTemplate("t1"))

	err := e.Validate()
	var errs notifier.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, notifier.ValidationErrors{
		"conditions.1.propertyId": "Property does not belong to the selected database.",
	}, errs)
}

func TestSubmitCreate(t *testing.T) {
	api := newFakeAPI()
	queries := query.NewClient(0)
	queries.SetData(TemplatesKey(), []notifier.Template{})

	e, err := New(context.Background(), api, queries)
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), e.Init()))

	require.NoError(t, e.SetName("New"))
	cmd, err := e.SelectIntegration("A")
	settle(t, e, cmd, err)
	cmd, err = e.SelectDatabase("D1")
	settle(t, e, cmd, err)
	require.NoError(t, e.SetBody("{Status}"))
	require.NoError(t, e.SetDestination("dest-1"))

	cmd, err = e.Submit()
	require.NoError(t, err)
	assert.Equal(t, SubmissionPending, e.Submission().Status)

	_, err = e.Submit()
	assert.ErrorIs(t, err, ErrSubmissionPending)

	require.NoError(t, e.Settle(context.Background(), cmd))
	assert.True(t, e.Done())
	assert.Equal(t, "new", e.Result().ID)
	require.Len(t, api.created, 1)
	assert.Equal(t, notifier.TemplateRequest{
		Name:                    "New",
		UserNotionIntegrationID: "A",
		NotionDatabaseID:        "D1",
		Conditions:              notifier.Conditions{},
		Body:                    "{Status}",
		DestinationID:           "dest-1",
	}, api.created[0])

	_, ok := query.Peek[[]notifier.Template](queries, TemplatesKey())
	assert.False(t, ok)
}

func TestSubmitUpdateInvalidatesTemplate(t *testing.T) {
	api := newFakeAPI()
	queries := query.NewClient(0)
	queries.SetData(TemplatesKey(), []notifier.Template{})

	e, err := New(context.Background(), api, queries, WithTemplate("t1"))
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), e.Init()))
	_, ok := query.Peek[*notifier.Template](queries, TemplateKey("t1"))
	require.True(t, ok)

	require.NoError(t, e.SetName("Renamed"))
	cmd, err := e.Submit()
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), cmd))

	assert.True(t, e.Done())
	require.Len(t, api.updated, 1)
	assert.Equal(t, "Renamed", api.updated[0].Name)
	assert.Len(t, api.updated[0].Conditions, 2)

	_, ok = query.Peek[*notifier.Template](queries, TemplateKey("t1"))
	assert.False(t, ok)
	_, ok = query.Peek[[]notifier.Template](queries, TemplatesKey())
	assert.False(t, ok)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	api := newFakeAPI()
	api.setErr("update", httperr.New(errors.New("failed to PUT /templates/t1: database is locked"), http.StatusInternalServerError))
	e := newEditor(t, api, WithTemplate("t1"))
	require.NoError(t, e.SetName("Renamed"))
	before := e.Draft()

	cmd, err := e.Submit()
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), cmd))

	submission := e.Submission()
	assert.Equal(t, SubmissionFailed, submission.Status)
	assert.Equal(t, "failed to PUT /templates/t1: database is locked", submission.Reason)
	assert.True(t, httperr.IsStatus(submission.Err, http.StatusInternalServerError))
	assert.False(t, e.Done())
	assert.Equal(t, before, e.Draft())
	assert.True(t, e.Dirty().Has(FieldName))

	// the draft stays editable and can be submitted again
	require.NoError(t, e.SetBody("retry"))
	api.setErr("update", nil)
	cmd, err = e.Submit()
	require.NoError(t, err)
	require.NoError(t, e.Settle(context.Background(), cmd))
	assert.True(t, e.Done())
}

func TestCachedDataResolvesWithoutFetch(t *testing.T) {
	api := newFakeAPI()
	queries := query.NewClient(0)

	first, err := New(context.Background(), api, queries, WithTemplate("t1"))
	require.NoError(t, err)
	require.NoError(t, first.Settle(context.Background(), first.Init()))

	second, err := New(context.Background(), api, queries, WithTemplate("t1"))
	require.NoError(t, err)
	cmd := second.Init()
	assert.True(t, second.Ready())
	require.NoError(t, second.Settle(context.Background(), cmd))

	for _, name := range []string{"template", "integrations", "destinations", "databases", "properties"} {
		assert.Equal(t, 1, api.callCount(name), name)
	}
	assert.Len(t, second.Draft().Conditions, 2)
}
