package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifier-app/notifier/internal/editor"
	"github.com/notifier-app/notifier/internal/query"
	"github.com/notifier-app/notifier/notifier"
)

type stubAPI struct {
	created []notifier.TemplateRequest
}

func (s *stubAPI) GetTemplate(_ context.Context, id string) (*notifier.Template, error) {
	return &notifier.Template{
		ID:                      id,
		Name:                    "Done tasks",
		UserNotionIntegrationID: "int-1",
		NotionDatabaseID:        "db-1",
		Conditions: notifier.Conditions{
			{PropertyID: "p-status", Operator: notifier.OperatorEquals, Value: "Done"},
		},
		Body:          "{Name} is done",
		DestinationID: "dest-1",
	}, nil
}

func (s *stubAPI) CreateTemplate(_ context.Context, rq notifier.TemplateRequest) (*notifier.Template, error) {
	s.created = append(s.created, rq)
	return &notifier.Template{ID: "new", Name: rq.Name}, nil
}

func (s *stubAPI) UpdateTemplate(_ context.Context, id string, rq notifier.TemplateRequest) (*notifier.Template, error) {
	return &notifier.Template{ID: id, Name: rq.Name}, nil
}

func (s *stubAPI) GetNotionIntegrations(context.Context) ([]notifier.NotionIntegration, error) {
	return []notifier.NotionIntegration{
		{ID: "int-1", IntegrationName: "Work"},
		{ID: "int-2", IntegrationName: "Home"},
		{ID: "int-3", IntegrationName: "home"},
	}, nil
}

func (s *stubAPI) GetNotionDatabases(_ context.Context, integrationID string) ([]notifier.NotionDatabase, error) {
	if integrationID == "int-1" {
		return []notifier.NotionDatabase{{ID: "db-1", Name: "Tasks"}, {ID: "db-2", Name: "Bugs"}}, nil
	}
	return nil, nil
}

func (s *stubAPI) GetNotionDatabaseProperties(_ context.Context, _ string, databaseID string) ([]notifier.NotionProperty, error) {
	switch databaseID {
	case "db-1":
		return []notifier.NotionProperty{
			{ID: "p-status", Name: "Status", Type: "status"},
			{ID: "p-name", Name: "Name", Type: "title"},
		}, nil
	case "db-2":
		return []notifier.NotionProperty{{ID: "p-severity", Name: "Severity", Type: "select"}}, nil
	}
	return nil, nil
}

func (s *stubAPI) GetDestinations(context.Context) ([]notifier.Destination, error) {
	return []notifier.Destination{
		{ID: "dest-1", Name: "Ops", WebhookURL: "https://hooks.example.com/ops"},
		{ID: "dest-2", WebhookURL: "https://hooks.example.com/a-very-long-webhook-path"},
	}, nil
}

func newTestEditor(t *testing.T, api editor.API, opts ...editor.Option) *editor.Editor {
	t.Helper()
	ed, err := editor.New(context.Background(), api, query.NewClient(time.Minute), opts...)
	require.NoError(t, err)
	require.NoError(t, ed.Settle(context.Background(), ed.Init()))
	require.True(t, ed.Ready())
	return ed
}

func newFlagCmd(t *testing.T, args ...string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "new"}
	addTemplateFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	require.NoError(t, bindTemplateFlags(cmd))

	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	return cmd, &stderr
}

func TestResolveChoice(t *testing.T) {
	choices := []editor.Choice{
		{Label: "Work", Value: "int-1"},
		{Label: "Home", Value: "int-2"},
		{Label: "home", Value: "int-3"},
	}

	id, err := resolveChoice("integration", choices, "int-2")
	require.NoError(t, err)
	assert.Equal(t, "int-2", id)

	id, err = resolveChoice("integration", choices, "work")
	require.NoError(t, err)
	assert.Equal(t, "int-1", id)

	_, err = resolveChoice("integration", choices, "HOME")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveChoice("integration", choices, "Garden")
	assert.EqualError(t, err, "unknown integration: Garden")
}

func TestApplyTemplateFlagsCreate(t *testing.T) {
	api := &stubAPI{}
	ed := newTestEditor(t, api)

	cmd, stderr := newFlagCmd(t,
		"--name", "Done tasks",
		"--integration", "Work",
		"--database", "Tasks",
		"--condition", "Status:equals:Done",
		"--condition", "p-name:contains:a:b",
		"--body", "{Name} is done {Missing}",
		"--destination", "Ops",
	)
	require.NoError(t, applyTemplateFlags(cmd, ed))

	draft := ed.Draft()
	assert.Equal(t, "Done tasks", draft.Name)
	assert.Equal(t, "int-1", draft.UserNotionIntegrationID)
	assert.Equal(t, "db-1", draft.NotionDatabaseID)
	assert.Equal(t, notifier.Conditions{
		{PropertyID: "p-status", Operator: notifier.OperatorEquals, Value: "Done"},
		{PropertyID: "p-name", Operator: notifier.OperatorContains, Value: "a:b"},
	}, draft.Conditions)
	assert.Equal(t, "dest-1", draft.DestinationID)
	assert.Contains(t, stderr.String(), "unknown placeholder: {Missing}")

	submit, err := ed.Submit()
	require.NoError(t, err)
	require.NoError(t, ed.Settle(context.Background(), submit))
	assert.True(t, ed.Done())
	require.Len(t, api.created, 1)
}

func TestApplyTemplateFlagsEditKeepsUnchangedFields(t *testing.T) {
	ed := newTestEditor(t, &stubAPI{}, editor.WithTemplate("t1"))

	cmd, _ := newFlagCmd(t, "--name", "Renamed")
	require.NoError(t, applyTemplateFlags(cmd, ed))

	draft := ed.Draft()
	assert.Equal(t, "Renamed", draft.Name)
	assert.Equal(t, "db-1", draft.NotionDatabaseID)
	assert.Len(t, draft.Conditions, 1)
	assert.Equal(t, "dest-1", draft.DestinationID)
}

func TestApplyTemplateFlagsDatabaseChangeClearsConditions(t *testing.T) {
	ed := newTestEditor(t, &stubAPI{}, editor.WithTemplate("t1"))

	cmd, _ := newFlagCmd(t, "--database", "Bugs")
	require.NoError(t, applyTemplateFlags(cmd, ed))

	draft := ed.Draft()
	assert.Equal(t, "db-2", draft.NotionDatabaseID)
	assert.Empty(t, draft.Conditions)
	assert.Equal(t, []notifier.NotionProperty{{ID: "p-severity", Name: "Severity", Type: "select"}}, ed.Properties())
}

func TestApplyTemplateFlagsRejectsUnknownProperty(t *testing.T) {
	ed := newTestEditor(t, &stubAPI{}, editor.WithTemplate("t1"))

	cmd, _ := newFlagCmd(t, "--condition", "Priority:equals:High")
	err := applyTemplateFlags(cmd, ed)
	assert.EqualError(t, err, "unknown property: Priority")
}

func TestApplyTemplateFlagsRejectsInvalidCondition(t *testing.T) {
	ed := newTestEditor(t, &stubAPI{}, editor.WithTemplate("t1"))

	cmd, _ := newFlagCmd(t, "--condition", "Status:like:Done")
	err := applyTemplateFlags(cmd, ed)
	assert.ErrorContains(t, err, `unknown operator "like"`)
}

func TestPrintValidationErrors(t *testing.T) {
	var stderr bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetErr(&stderr)

	printValidationErrors(cmd, notifier.ValidationErrors{
		"name":                  "Template name is required.",
		"conditions.0.operator": "Operator is required.",
	})
	out := stderr.String()
	assert.Contains(t, out, "Template name is required.")
	assert.Less(t, bytes.Index(stderr.Bytes(), []byte("conditions.0.operator")), bytes.Index(stderr.Bytes(), []byte("name")))
}
