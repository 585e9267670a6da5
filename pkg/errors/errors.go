// Package errors defines the error taxonomy shared by the HTTP layer and
// the sync pipeline: sentinels for errors.Is checks, AppError for failures
// that carry a wire code and HTTP status, and a constructor per kind.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Request-scoped sentinels, matched with errors.Is.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Ingestion pipeline sentinels. These classify failures of the feed sync
// path so callers can decide between surfacing, retrying, and recording
// the failure on the SyncRecord.
var (
	ErrInvalidFeed      = errors.New("invalid feed")
	ErrTransientStorage = errors.New("transient storage error")
	ErrSyncAborted      = errors.New("sync aborted")
	ErrDuplicateEdge    = errors.New("duplicate compatibility edge")
	ErrInterruptedRun   = errors.New("run interrupted by restart")
)

// AppError attaches a machine-readable code and an HTTP status to a failure.
// Err keeps the cause reachable for errors.Is; the response envelope is built
// from Code and Message by the HTTP layer.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// sentinelStatus maps bare sentinels to HTTP statuses for errors that travel
// without an AppError wrapper.
var sentinelStatus = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrDuplicateEdge, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrInvalidFeed, http.StatusUnprocessableEntity},
	{ErrTransientStorage, http.StatusServiceUnavailable},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// HTTPStatus resolves the response status for err. An AppError answers for
// itself, bare sentinels map through sentinelStatus, everything else is a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, m := range sentinelStatus {
		if errors.Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// InvalidFeed creates a 422 error for an unreadable or structurally broken
// vendor workbook. It marks the sync as permanently failed; the job is not
// retried.
func InvalidFeed(message string) *AppError {
	return &AppError{
		Code:    "INVALID_FEED",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidFeed,
	}
}

// TransientStorage creates a 503 error for a database failure that is worth
// retrying with bounded backoff.
func TransientStorage(err error) *AppError {
	return &AppError{
		Code:    "TRANSIENT_STORAGE",
		Message: "transient storage failure",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrTransientStorage, err),
	}
}

// SyncAborted creates a 500 error for an unrecoverable mid-sync failure.
// Batches committed before the abort remain applied.
func SyncAborted(stage string, err error) *AppError {
	return &AppError{
		Code:    "SYNC_ABORTED",
		Message: fmt.Sprintf("sync aborted during %s", stage),
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %w", ErrSyncAborted, err),
	}
}

// DuplicateEdge classifies a unique-constraint race on an edge insert, which
// happens when a concurrent rebuild lands the same row first. The
// materializer treats it as idempotent success for that anchor.
func DuplicateEdge(baseSKU string, err error) *AppError {
	return &AppError{
		Code:    "DUPLICATE_EDGE",
		Message: fmt.Sprintf("concurrent edge write for %s", baseSKU),
		Status:  http.StatusConflict,
		Err:     fmt.Errorf("%w: %w", ErrDuplicateEdge, err),
	}
}

// InterruptedRun creates the error recorded on a SyncRecord found in
// processing state after a restart. It is never surfaced over HTTP as a
// failure of the current request.
func InterruptedRun() *AppError {
	return &AppError{
		Code:    "INTERRUPTED_RUN",
		Message: "sync interrupted by restart",
		Status:  http.StatusInternalServerError,
		Err:     ErrInterruptedRun,
	}
}
