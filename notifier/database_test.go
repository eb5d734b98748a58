package notifier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(context.Background(), DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "drafts.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	rq := TemplateRequest{
		Name:                    "Done tasks",
		UserNotionIntegrationID: "int-1",
		NotionDatabaseID:        "db-1",
		Conditions:              Conditions{{PropertyID: "p1", Operator: OperatorEquals, Value: "Done"}},
		Body:                    "{Name} is done: {_pageUrl}",
		DestinationID:           "dest-1",
	}
	draft, err := NewDraft("", rq, errors.New("failed to POST /templates: 500 boom"))
	require.NoError(t, err)

	saved, err := db.SaveDraft(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Done tasks", saved.Name)

	got, err := db.GetDraft(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed to POST /templates: 500 boom", got.Error)
	gotRq, err := got.Request()
	require.NoError(t, err)
	assert.Equal(t, rq, gotRq)

	rq.Name = "Renamed"
	updated, err := NewDraft("", rq, nil)
	require.NoError(t, err)
	updated.ID = saved.ID
	updated.CreatedAt = saved.CreatedAt
	_, err = db.SaveDraft(ctx, updated)
	require.NoError(t, err)

	drafts, err := db.GetDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Renamed", drafts[0].Name)
	assert.Empty(t, drafts[0].Error)

	require.NoError(t, db.DeleteDraft(ctx, saved.ID))
	_, err = db.GetDraft(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, db.DeleteDraft(ctx, saved.ID), ErrDraftNotFound)
}

func TestDeleteExpiredDrafts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	draft, err := NewDraft("tmpl-1", TemplateRequest{Name: "old"}, nil)
	require.NoError(t, err)
	_, err = db.SaveDraft(ctx, draft)
	require.NoError(t, err)

	deleted, err := db.DeleteExpiredDrafts(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)

	deleted, err = db.DeleteExpiredDrafts(ctx, -time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}

func TestNewDBInvalidType(t *testing.T) {
	_, err := NewDB(context.Background(), DatabaseConfig{Type: "mysql"})
	assert.Error(t, err)
}
