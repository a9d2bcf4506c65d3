package renderdocument

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/common/pdfmonkey"
	"roof-report-service/internal/models"
)

// ==========================
// Test Helpers
// ==========================

type statusStep struct {
	status string
	url    string
	err    error
}

// fakeDocuments replays a status script for GetDocument and counts queries.
type fakeDocuments struct {
	createID  string
	createErr error
	created   []interface{}
	script    []statusStep
	queries   int
}

func (f *fakeDocuments) CreateDocument(ctx context.Context, templateID string, payload interface{}) (*pdfmonkey.Document, error) {
	f.created = append(f.created, payload)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &pdfmonkey.Document{ID: f.createID, Status: pdfmonkey.StatusPending}, nil
}

func (f *fakeDocuments) GetDocument(ctx context.Context, id string) (*pdfmonkey.Document, error) {
	step := f.script[f.queries]
	f.queries++
	if step.err != nil {
		return nil, step.err
	}
	return &pdfmonkey.Document{ID: id, Status: step.status, DownloadURL: step.url, FailureCause: "template error"}, nil
}

func fastConfig() *Config {
	return &Config{TemplateID: "tpl-1", PollInterval: time.Millisecond, MaxAttempts: 30}
}

func pending(n int) []statusStep {
	steps := make([]statusStep, n)
	for i := range steps {
		steps[i] = statusStep{status: pdfmonkey.StatusPending}
	}
	return steps
}

func deps(t *testing.T, docs DocumentService) ServiceDependencies {
	return ServiceDependencies{Documents: docs, Logger: logger.NewTestLogger(t)}
}

// ==========================
// Poller Tests
// ==========================

func TestPoller_Await(t *testing.T) {
	tests := []struct {
		name        string
		script      []statusStep
		wantQueries int
		wantURL     string
		wantCode    stderrors.ErrorCode
	}{
		{
			name:        "success on third query",
			script:      append(pending(2), statusStep{status: "success", url: "https://files.example/r.pdf"}),
			wantQueries: 3,
			wantURL:     "https://files.example/r.pdf",
		},
		{
			name:        "success on first query",
			script:      []statusStep{{status: "success", url: "https://files.example/r.pdf"}},
			wantQueries: 1,
			wantURL:     "https://files.example/r.pdf",
		},
		{
			name:        "pending thirty times times out",
			script:      pending(30),
			wantQueries: 30,
			wantCode:    stderrors.ErrCodeRenderTimeout,
		},
		{
			name:        "failure stops immediately",
			script:      append(pending(1), statusStep{status: "failure"}, statusStep{status: "success", url: "never"}),
			wantQueries: 2,
			wantCode:    stderrors.ErrCodeRenderFailed,
		},
		{
			name:        "generating counts as pending",
			script:      []statusStep{{status: "draft"}, {status: "generating"}, {status: "success", url: "u"}},
			wantQueries: 3,
			wantURL:     "u",
		},
		{
			name:        "query error is retried on next tick",
			script:      []statusStep{{err: errors.New("502 bad gateway")}, {status: "success", url: "u"}},
			wantQueries: 2,
			wantURL:     "u",
		},
		{
			name:        "success without download url is a failure",
			script:      []statusStep{{status: "success"}},
			wantQueries: 1,
			wantCode:    stderrors.ErrCodeRenderFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &fakeDocuments{script: tt.script}
			res := NewPoller(deps(t, docs), fastConfig()).Await(context.Background(), "doc-1")

			assert.Equal(t, tt.wantQueries, docs.queries)
			if tt.wantCode != "" {
				require.True(t, res.Failed())
				assert.Equal(t, tt.wantCode, res.Err.Code)
				assert.Equal(t, "doc-1", res.Err.Metadata["jobId"])
				return
			}
			require.False(t, res.Failed())
			assert.Equal(t, tt.wantURL, res.Value.ArtifactURL)
			assert.Equal(t, models.RenderSuccess, res.Value.Status)
		})
	}
}

func TestPoller_TimeoutReportsAttempts(t *testing.T) {
	docs := &fakeDocuments{script: pending(5)}
	cfg := fastConfig()
	cfg.MaxAttempts = 5

	res := NewPoller(deps(t, docs), cfg).Await(context.Background(), "doc-9")

	require.True(t, res.Failed())
	assert.Equal(t, "PDF generation timeout", res.Err.Message)
	assert.Equal(t, 5, res.Err.Metadata["attempts"])
}

func TestPoller_FailureKeepsCause(t *testing.T) {
	docs := &fakeDocuments{script: []statusStep{{status: "failure"}}}

	res := NewPoller(deps(t, docs), fastConfig()).Await(context.Background(), "doc-1")

	require.True(t, res.Failed())
	assert.Equal(t, "PDF generation failed", res.Err.Message)
	assert.Equal(t, "template error", res.Err.Metadata["failureCause"])
}

func TestPoller_ContextCancelledTimesOut(t *testing.T) {
	docs := &fakeDocuments{script: pending(30)}
	cfg := fastConfig()
	cfg.PollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := NewPoller(deps(t, docs), cfg).Await(ctx, "doc-1")

	require.True(t, res.Failed())
	assert.Equal(t, stderrors.ErrCodeRenderTimeout, res.Err.Code)
	assert.Less(t, docs.queries, 30)
}

// ==========================
// Client Tests
// ==========================

func TestClient_Submit(t *testing.T) {
	docs := &fakeDocuments{createID: "doc-7"}
	payload := &models.RenderPayload{ReportID: "INS-2026-1234"}

	res := NewClient(deps(t, docs), fastConfig()).Submit(context.Background(), payload)

	require.False(t, res.Failed())
	assert.Equal(t, "doc-7", res.Value)
	require.Len(t, docs.created, 1)
	assert.Same(t, payload, docs.created[0])
}

func TestClient_SubmitFailures(t *testing.T) {
	tests := []struct {
		name string
		docs *fakeDocuments
	}{
		{name: "network error", docs: &fakeDocuments{createErr: errors.New("dial tcp: connection refused")}},
		{name: "no job id", docs: &fakeDocuments{createID: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewClient(deps(t, tt.docs), fastConfig()).Submit(context.Background(), &models.RenderPayload{})

			require.True(t, res.Failed())
			assert.Equal(t, stderrors.ErrCodeRenderSubmitFailed, res.Err.Code)
			assert.False(t, res.Err.IsFatal())
		})
	}
}

// ==========================
// Against the HTTP client
// ==========================

func TestSubmitAndAwait_OverHTTP(t *testing.T) {
	var gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"document":{"id":"doc-42","status":"pending"}}`))
		case http.MethodGet:
			if atomic.AddInt32(&gets, 1) < 2 {
				_, _ = w.Write([]byte(`{"document":{"id":"doc-42","status":"generating"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"document":{"id":"doc-42","status":"success","download_url":"https://files.example/doc-42.pdf"}}`))
		}
	}))
	defer server.Close()

	docs := pdfmonkey.NewClient("key", server.URL, 5*time.Second)
	cfg := fastConfig()

	submitted := NewClient(deps(t, docs), cfg).Submit(context.Background(), &models.RenderPayload{ReportID: "INS-2026-1000"})
	require.False(t, submitted.Failed())

	res := NewPoller(deps(t, docs), cfg).Await(context.Background(), submitted.Value)

	require.False(t, res.Failed())
	assert.Equal(t, "https://files.example/doc-42.pdf", res.Value.ArtifactURL)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gets))
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 60*time.Second, cfg.Ceiling())
	assert.Error(t, (&Config{PollInterval: 0, MaxAttempts: 1}).Validate())
	assert.Error(t, (&Config{PollInterval: time.Second}).Validate())
}
