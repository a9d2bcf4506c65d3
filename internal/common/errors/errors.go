// Package errors provides the structured error model used across the report pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Degradation codes. The pipeline records these and keeps going.
const (
	ErrCodeUploadFailed       ErrorCode = "UPLOAD_FAILED"
	ErrCodeRenderSubmitFailed ErrorCode = "RENDER_SUBMIT_FAILED"
	ErrCodeRenderFailed       ErrorCode = "RENDER_FAILED"
	ErrCodeRenderTimeout      ErrorCode = "RENDER_TIMEOUT"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
)

// Fatal codes. Only these turn a pipeline run into success=false.
const (
	ErrCodeInvalidSubmission ErrorCode = "INVALID_SUBMISSION"
	ErrCodeUnhandled         ErrorCode = "UNHANDLED_ERROR"
)

// Infrastructure codes used by supporting stores.
const (
	ErrCodeCacheUnavailable  ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeLedgerWriteFailed ErrorCode = "LEDGER_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsFatal reports whether the error must fail the whole pipeline run.
func (e *StandardError) IsFatal() bool {
	return IsFatalCode(e.Code)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the process engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail/throw variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUploadFailedError marks one photo as skipped. position is 1-indexed.
func NewUploadFailedError(position int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUploadFailed,
		Message:   "Photo upload failed",
		Details:   fmt.Sprintf("photo %d: %s", position, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"position": position},
		Timestamp: time.Now().UTC(),
	}
}

func NewRenderSubmitFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderSubmitFailed,
		Message:   "Render job submission failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewRenderFailedError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderFailed,
		Message:   "PDF generation failed",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Metadata:  map[string]interface{}{"jobId": jobID},
		Timestamp: time.Now().UTC(),
	}
}

func NewRenderTimeoutError(jobID string, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRenderTimeout,
		Message:   "PDF generation timeout",
		Details:   fmt.Sprintf("jobId: %s, attempts: %d", jobID, attempts),
		Retryable: true,
		Metadata:  map[string]interface{}{"jobId": jobID, "attempts": attempts},
		Timestamp: time.Now().UTC(),
	}
}

func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidSubmissionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSubmission,
		Message:   "Invalid inspection submission",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnhandledError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnhandled,
		Message:   err.Error(),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewLedgerWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerWriteFailed,
		Message:   "Report ledger write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Conversion
// ==========================

// AsStandardError unwraps err into a StandardError, normalizing anything else to UNHANDLED_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewUnhandledError(err)
}

// GetRetryCount returns how many times the process engine should retry a job failing with code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUnhandled:
		return 1
	case ErrCodeCacheUnavailable, ErrCodeLedgerWriteFailed, "EXTERNAL_SERVICE_ERROR", "TIMEOUT_ERROR":
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the process engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsFatalCode reports whether code aborts the pipeline instead of degrading it.
func IsFatalCode(code ErrorCode) bool {
	return code == ErrCodeInvalidSubmission || code == ErrCodeUnhandled
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "UPLOAD"):
		return "IMAGE_HOST"
	case strings.HasPrefix(codeStr, "RENDER"):
		return "RENDER"
	case strings.HasPrefix(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "LEDGER"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// Codes extracts the codes of errs in order, skipping nils.
func Codes(errs []*StandardError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			out = append(out, string(e.Code))
		}
	}
	return out
}
