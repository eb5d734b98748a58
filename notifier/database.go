package notifier

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jmoiron/sqlx"
	"github.com/topi314/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var ErrDraftNotFound = errors.New("draft not found")

// Draft is a template request kept locally after a failed submission.
type Draft struct {
	ID         string    `db:"id"`
	TemplateID string    `db:"template_id"`
	Name       string    `db:"name"`
	Payload    string    `db:"payload"`
	Error      string    `db:"error"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (d Draft) Request() (TemplateRequest, error) {
	var rq TemplateRequest
	if err := json.Unmarshal([]byte(d.Payload), &rq); err != nil {
		return TemplateRequest{}, fmt.Errorf("failed to decode draft %s: %w", d.ID, err)
	}
	return rq, nil
}

func NewDraft(templateID string, rq TemplateRequest, cause error) (Draft, error) {
	payload, err := json.Marshal(rq)
	if err != nil {
		return Draft{}, fmt.Errorf("failed to encode draft: %w", err)
	}
	draft := Draft{
		TemplateID: templateID,
		Name:       rq.Name,
		Payload:    string(payload),
	}
	if cause != nil {
		draft.Error = cause.Error()
	}
	return draft, nil
}

func NewDB(ctx context.Context, cfg DatabaseConfig) (*DB, error) {
	var (
		driverName     string
		dataSourceName string
		dbSystem       attribute.KeyValue
	)
	switch cfg.Type {
	case "postgres":
		driverName = "pgx"
		dbSystem = semconv.DBSystemPostgreSQL
		pgCfg, err := pgx.ParseConfig(cfg.PostgresDataSourceName())
		if err != nil {
			return nil, err
		}

		if cfg.Debug {
			pgCfg.Tracer = &tracelog.TraceLog{
				Logger: tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
					args := make([]any, 0, len(data))
					for k, v := range data {
						args = append(args, slog.Any(k, v))
					}
					slog.DebugContext(ctx, msg, slog.Group("data", args...))
				}),
				LogLevel: tracelog.LogLevelDebug,
			}
		}
		dataSourceName = stdlib.RegisterConnConfig(pgCfg)
	case "sqlite":
		driverName = "sqlite"
		dbSystem = semconv.DBSystemSqlite
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dataSourceName = cfg.Path
	default:
		return nil, errors.New("invalid database type, must be one of: postgres, sqlite")
	}

	sqlDB, err := otelsql.Open(driverName, dataSourceName,
		otelsql.WithAttributes(dbSystem),
		otelsql.WithSQLCommenter(true),
		otelsql.WithAttributesGetter(func(ctx context.Context, method otelsql.Method, query string, args []driver.NamedValue) []attribute.KeyValue {
			return []attribute.KeyValue{
				semconv.DBOperationKey.String(string(method)),
				semconv.DBStatementKey.String(query),
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = otelsql.RegisterDBStatsMetrics(sqlDB, otelsql.WithAttributes(dbSystem)); err != nil {
		return nil, fmt.Errorf("failed to register database stats metrics: %w", err)
	}

	dbx := sqlx.NewDb(sqlDB, driverName)
	if err = dbx.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err = dbx.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	cleanupContext, cancel := context.WithCancel(context.Background())
	db := &DB{
		dbx:           dbx,
		cleanupCancel: cancel,
		tracer:        otel.Tracer("notifier/database"),
	}

	go db.cleanup(cleanupContext, cfg.CleanupInterval, cfg.ExpireAfter)

	return db, nil
}

type DB struct {
	dbx           *sqlx.DB
	cleanupCancel context.CancelFunc
	tracer        trace.Tracer
}

func (d *DB) Close() error {
	d.cleanupCancel()
	return d.dbx.Close()
}

// SaveDraft inserts draft or updates it if draft.ID is already known.
func (d *DB) SaveDraft(ctx context.Context, draft Draft) (*Draft, error) {
	now := time.Now().UTC()
	if draft.ID == "" {
		draft.ID = uuid.NewString()
		draft.CreatedAt = now
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	query := `INSERT INTO drafts (id, template_id, name, payload, error, created_at, updated_at)
		VALUES (:id, :template_id, :name, :payload, :error, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET template_id = excluded.template_id, name = excluded.name, payload = excluded.payload, error = excluded.error, updated_at = excluded.updated_at`
	if _, err := d.dbx.NamedExecContext(ctx, query, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return &draft, nil
}

func (d *DB) GetDraft(ctx context.Context, id string) (*Draft, error) {
	var draft Draft
	if err := d.dbx.GetContext(ctx, &draft, "SELECT * FROM drafts WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	return &draft, nil
}

func (d *DB) GetDrafts(ctx context.Context) ([]Draft, error) {
	var drafts []Draft
	if err := d.dbx.SelectContext(ctx, &drafts, "SELECT * FROM drafts ORDER BY updated_at DESC"); err != nil {
		return nil, err
	}
	return drafts, nil
}

func (d *DB) DeleteDraft(ctx context.Context, id string) error {
	res, err := d.dbx.ExecContext(ctx, "DELETE FROM drafts WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDraftNotFound
	}
	return nil
}

func (d *DB) DeleteExpiredDrafts(ctx context.Context, expireAfter time.Duration) (int64, error) {
	res, err := d.dbx.ExecContext(ctx, "DELETE FROM drafts WHERE updated_at < $1", time.Now().UTC().Add(-expireAfter))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) cleanup(ctx context.Context, cleanUpInterval time.Duration, expireAfter time.Duration) {
	if expireAfter <= 0 {
		return
	}
	if cleanUpInterval <= 0 {
		cleanUpInterval = 10 * time.Minute
	}
	slog.Debug("Starting draft cleanup...")
	d.doCleanup(expireAfter)

	ticker := time.NewTicker(cleanUpInterval)
	defer func() {
		ticker.Stop()
		slog.Debug("draft cleanup stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.doCleanup(expireAfter)
		}
	}
}

func (d *DB) doCleanup(expireAfter time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "doCleanup")
	defer span.End()

	deleted, err := d.DeleteExpiredDrafts(ctx, expireAfter)
	if err != nil && !errors.Is(err, context.Canceled) {
		span.SetStatus(codes.Error, "failed to delete expired drafts")
		span.RecordError(err)
		slog.ErrorContext(ctx, "failed to delete expired drafts", tint.Err(err))
		return
	}
	if deleted > 0 {
		slog.DebugContext(ctx, "deleted expired drafts", slog.Int64("count", deleted))
	}
}
