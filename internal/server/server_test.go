package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/models"
	"roof-report-service/internal/server"
)

type stubGenerator struct {
	mu      sync.Mutex
	raw     []byte
	source  string
	outcome *models.PipelineOutcome
}

func (g *stubGenerator) GenerateJSON(ctx context.Context, raw []byte, source string) *models.PipelineOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.raw = raw
	g.source = source
	return g.outcome
}

type stubImages struct {
	url string
	err error
	got string
}

func (i *stubImages) Upload(ctx context.Context, file string) (string, error) {
	i.got = file
	return i.url, i.err
}

func newTestServer(t *testing.T, deps server.Dependencies, cfg server.Config) *server.Server {
	t.Helper()
	deps.Logger = logger.NewTestLogger(t)
	return server.New(cfg, deps)
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), "body: %s", rec.Body.String())
}

func TestServer_GenerateReport_Success(t *testing.T) {
	url := "https://files.example/report.pdf"
	gen := &stubGenerator{outcome: &models.PipelineOutcome{
		Success:        true,
		ReportID:       "INS-2026-4821",
		ArtifactURL:    &url,
		PhotosUploaded: 2,
	}}
	s := newTestServer(t, server.Dependencies{Generator: gen}, server.Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/generate-report", `{"customerName":"Jane"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"reportId":"INS-2026-4821","pdfUrl":"https://files.example/report.pdf","photosUploaded":2}`, rec.Body.String())
	assert.Equal(t, `{"customerName":"Jane"}`, string(gen.raw))
	assert.Equal(t, "http", gen.source)
}

func TestServer_GenerateReport_DegradedIsStillOK(t *testing.T) {
	gen := &stubGenerator{outcome: &models.PipelineOutcome{
		Success:      true,
		ReportID:     "INS-2026-1000",
		Degradations: []*errors.StandardError{errors.NewRenderTimeoutError("doc-1", 30)},
	}}
	s := newTestServer(t, server.Dependencies{Generator: gen}, server.Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/generate-report", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"reportId":"INS-2026-1000","pdfUrl":null,"photosUploaded":0}`, rec.Body.String())
}

func TestServer_GenerateReport_Fatal(t *testing.T) {
	gen := &stubGenerator{outcome: &models.PipelineOutcome{
		Success: false,
		Error:   "Invalid inspection submission: photos: Invalid type",
		Fatal:   errors.NewInvalidSubmissionError("photos: Invalid type"),
	}}
	s := newTestServer(t, server.Dependencies{Generator: gen}, server.Config{})

	rec := doJSON(t, s, http.MethodPost, "/api/generate-report", `{"photos":"x"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid inspection submission: photos: Invalid type"}`, rec.Body.String())
}

func TestServer_GenerateReport_BodyTooLarge(t *testing.T) {
	gen := &stubGenerator{}
	s := newTestServer(t, server.Dependencies{Generator: gen}, server.Config{MaxBodyBytes: 16})

	rec := doJSON(t, s, http.MethodPost, "/api/generate-report", `{"customerName":"a very long name indeed"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	decodeJSON(t, rec, &body)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "request body too large")
	assert.Nil(t, gen.raw)
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t, server.Dependencies{}, server.Config{})

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get(server.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(server.RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(server.RequestIDHeader))
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t, server.Dependencies{}, server.Config{AllowedOrigin: "https://app.example"})

	rec := doJSON(t, s, http.MethodOptions, "/api/generate-report", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestServer_Diagnostics(t *testing.T) {
	presence := server.Presence{CloudName: "demo", HasCloudName: true, HasUploadPreset: true}

	t.Run("upload succeeds", func(t *testing.T) {
		images := &stubImages{url: "https://res.example/demo/test.png"}
		s := newTestServer(t, server.Dependencies{Images: images, Presence: presence}, server.Config{})

		rec := doJSON(t, s, http.MethodGet, "/api/diagnostics", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, server.TestImage, images.got)
		assert.JSONEq(t, `{
			"success": true,
			"imageUrl": "https://res.example/demo/test.png",
			"envVars": {
				"cloudName": "demo", "hasCloudName": true, "hasUploadPreset": true,
				"hasRenderApiKey": false, "hasTemplateId": false, "hasContactApiKey": false, "hasLocationId": false
			}
		}`, rec.Body.String())
	})

	t.Run("upload fails", func(t *testing.T) {
		images := &stubImages{err: fmt.Errorf("upload rejected (400): Upload preset not found")}
		s := newTestServer(t, server.Dependencies{Images: images, Presence: presence}, server.Config{})

		rec := doJSON(t, s, http.MethodGet, "/api/diagnostics", "")

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var body map[string]interface{}
		decodeJSON(t, rec, &body)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "Upload preset not found")
	})

	t.Run("no image host", func(t *testing.T) {
		s := newTestServer(t, server.Dependencies{Presence: presence}, server.Config{})
		rec := doJSON(t, s, http.MethodGet, "/api/diagnostics", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServer_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return fmt.Errorf("connection refused") }

	s := newTestServer(t, server.Dependencies{Checks: map[string]server.Check{"redis": ok}}, server.Config{})
	rec := doJSON(t, s, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s = newTestServer(t, server.Dependencies{Checks: map[string]server.Check{"redis": ok, "postgres": down}}, server.Config{})
	rec = doJSON(t, s, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, rec, &body)
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["redis"])
	assert.Equal(t, "connection refused", body.Checks["postgres"])
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, server.Dependencies{}, server.Config{})

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = doJSON(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
