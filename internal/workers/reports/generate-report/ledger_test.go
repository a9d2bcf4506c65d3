package generatereport

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roof-report-service/internal/models"
)

func TestPostgresLedger_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	started := time.Date(2026, time.May, 2, 10, 0, 0, 0, time.UTC)
	run := &models.ReportRun{
		ReportID:         "INS-2026-4821",
		Success:          true,
		ArtifactURL:      "https://files.example/r.pdf",
		PhotosSubmitted:  3,
		PhotosUploaded:   2,
		NotificationSent: true,
		Degradations:     []string{"UPLOAD_FAILED"},
		Source:           SourceHTTP,
		StartedAt:        started,
		FinishedAt:       started.Add(12 * time.Second),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_runs")).
		WithArgs("INS-2026-4821", true, "https://files.example/r.pdf", 3, 2, true,
			sqlmock.AnyArg(), nil, SourceHTTP, run.StartedAt, run.FinishedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	ledger := NewPostgresLedger(db)
	require.NoError(t, ledger.Record(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_RecordFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_runs")).WillReturnError(assert.AnError)

	err = NewPostgresLedger(db).Record(context.Background(), &models.ReportRun{ReportID: "INS-2026-1111"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INS-2026-1111")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS report_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresLedger(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
