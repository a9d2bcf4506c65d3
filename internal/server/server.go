// Package server exposes the report pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roof-report-service/internal/common/errors"
	"roof-report-service/internal/common/logger"
	"roof-report-service/internal/models"
	generatereport "roof-report-service/internal/workers/reports/generate-report"
)

const RequestIDHeader = "X-Request-ID"

// TestImage is a 10x10 PNG used to check the image host end to end.
const TestImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAoAAAAKCAYAAACNMs+9AAAAFUlEQVR42mP8z8BQzwAEjDAGNzYAAIoaB/5h/wYAAAAASUVORK5CYII="

// Generator runs the report pipeline on a raw submission.
type Generator interface {
	GenerateJSON(ctx context.Context, raw []byte, source string) *models.PipelineOutcome
}

// ImageHost is the upload side of the image host, used by diagnostics.
type ImageHost interface {
	Upload(ctx context.Context, file string) (string, error)
}

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxBodyBytes    int64
	AllowedOrigin   string
	DiagnosticsWait time.Duration
}

// Presence tells diagnostics callers which integrations are configured. It never carries secrets.
type Presence struct {
	CloudName        string `json:"cloudName"`
	HasCloudName     bool   `json:"hasCloudName"`
	HasUploadPreset  bool   `json:"hasUploadPreset"`
	HasRenderAPIKey  bool   `json:"hasRenderApiKey"`
	HasTemplateID    bool   `json:"hasTemplateId"`
	HasContactAPIKey bool   `json:"hasContactApiKey"`
	HasLocationID    bool   `json:"hasLocationId"`
}

type Dependencies struct {
	Generator Generator
	Images    ImageHost // optional, diagnostics only
	Presence  Presence
	Checks    map[string]Check
	Logger    logger.Logger
}

// Server is the HTTP surface of the report service.
type Server struct {
	cfg       Config
	generator Generator
	images    ImageHost
	presence  Presence
	checks    map[string]Check
	router    chi.Router
	logger    logger.Logger
}

func New(cfg Config, deps Dependencies) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 50 << 20
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	if cfg.DiagnosticsWait <= 0 {
		cfg.DiagnosticsWait = 30 * time.Second
	}

	s := &Server{
		cfg:       cfg,
		generator: deps.Generator,
		images:    deps.Images,
		presence:  deps.Presence,
		checks:    deps.Checks,
		router:    chi.NewRouter(),
		logger:    deps.Logger.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Options("/api/generate-report", s.optionsHandler("POST"))
	r.Options("/api/diagnostics", s.optionsHandler("GET"))

	r.Post("/api/generate-report", s.handleGenerateReport)
	r.Get("/api/diagnostics", s.handleDiagnostics)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}

// --- middleware ---

type ctxKey struct{}

// RequestIDFrom returns the id assigned to the request, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// accessLog never logs request bodies: submissions carry inline photos and phone numbers.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http_request", map[string]interface{}{
			"requestId":  RequestIDFrom(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeFailure(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, failureResponse{Success: false, Error: msg})
}

// --- handlers ---

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := err.Error()
		if stderrors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		s.logger.Warn("reading submission body", map[string]interface{}{
			"requestId": RequestIDFrom(r.Context()),
			"error":     err.Error(),
		})
		writeFailure(w, generatereport.ErrorText(errors.NewInvalidSubmissionError(msg)))
		return
	}

	// the run finishes even if the client goes away; the orchestrator bounds it
	ctx := context.WithoutCancel(r.Context())
	outcome := s.generator.GenerateJSON(ctx, raw, generatereport.SourceHTTP)
	if !outcome.Success {
		writeFailure(w, outcome.Error)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type diagnosticsResponse struct {
	Success  bool     `json:"success"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Error    string   `json:"error,omitempty"`
	EnvVars  Presence `json:"envVars"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	resp := diagnosticsResponse{EnvVars: s.presence}
	if s.images == nil {
		resp.Error = "image host is not configured"
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.DiagnosticsWait)
	defer cancel()

	url, err := s.images.Upload(ctx, TestImage)
	if err != nil {
		s.logger.Warn("diagnostic upload failed", map[string]interface{}{
			"requestId": RequestIDFrom(r.Context()),
			"error":     err.Error(),
		})
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp.Success = true
	resp.ImageURL = url
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := make(map[string]string, len(s.checks))
	ready := true
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			ready = false
			continue
		}
		results[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}
