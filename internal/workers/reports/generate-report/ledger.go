// internal/workers/reports/generate-report/ledger.go
package generatereport

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"roof-report-service/internal/models"
)

const createReportRunsTable = `
CREATE TABLE IF NOT EXISTS report_runs (
	id                BIGSERIAL PRIMARY KEY,
	report_id         TEXT NOT NULL,
	success           BOOLEAN NOT NULL,
	artifact_url      TEXT,
	photos_submitted  INTEGER NOT NULL,
	photos_uploaded   INTEGER NOT NULL,
	notification_sent BOOLEAN NOT NULL,
	degradations      TEXT[] NOT NULL DEFAULT '{}',
	error_code        TEXT,
	source            TEXT NOT NULL,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL
)`

const insertReportRun = `
INSERT INTO report_runs (
	report_id, success, artifact_url, photos_submitted, photos_uploaded,
	notification_sent, degradations, error_code, source, started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// PostgresLedger writes run metadata to the report_runs table. Submission content and photo
// payloads are never stored.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, createReportRunsTable); err != nil {
		return fmt.Errorf("create report_runs: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Record(ctx context.Context, run *models.ReportRun) error {
	_, err := l.db.ExecContext(ctx, insertReportRun,
		run.ReportID,
		run.Success,
		nullable(run.ArtifactURL),
		run.PhotosSubmitted,
		run.PhotosUploaded,
		run.NotificationSent,
		pq.Array(run.Degradations),
		nullable(run.ErrorCode),
		run.Source,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report_run %s: %w", run.ReportID, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
