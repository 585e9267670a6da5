package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- AppError behavior ---

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "SYNC_ABORTED", Message: "sync aborted during delete batch", Err: fmt.Errorf("deadlock detected")}
	assert.Equal(t, "SYNC_ABORTED: sync aborted during delete batch: deadlock detected", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", bare.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))

	bare := &AppError{Code: "NOT_FOUND", Message: "nope"}
	assert.Nil(t, bare.Unwrap())
}

// --- Constructors ---

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      string
		status    int
		sentinel  error
		inMessage []string
	}{
		{
			name:      "not found",
			err:       NotFound("product", "FB03060M"),
			code:      "NOT_FOUND",
			status:    http.StatusNotFound,
			sentinel:  ErrNotFound,
			inMessage: []string{"product", "FB03060M"},
		},
		{
			name:      "invalid input",
			err:       InvalidInput("sku is required"),
			code:      "INVALID_INPUT",
			status:    http.StatusBadRequest,
			sentinel:  ErrInvalidInput,
			inMessage: []string{"sku is required"},
		},
		{
			name:     "unauthorized",
			err:      Unauthorized("invalid webhook key"),
			code:     "UNAUTHORIZED",
			status:   http.StatusUnauthorized,
			sentinel: ErrUnauthorized,
		},
		{
			name:     "forbidden",
			err:      Forbidden("catalog is read only"),
			code:     "FORBIDDEN",
			status:   http.StatusForbidden,
			sentinel: ErrForbidden,
		},
		{
			name:      "invalid feed",
			err:       InvalidFeed("missing sheet Shower Bases"),
			code:      "INVALID_FEED",
			status:    http.StatusUnprocessableEntity,
			sentinel:  ErrInvalidFeed,
			inMessage: []string{"Shower Bases"},
		},
		{
			name:     "transient storage",
			err:      TransientStorage(fmt.Errorf("connection reset by peer")),
			code:     "TRANSIENT_STORAGE",
			status:   http.StatusServiceUnavailable,
			sentinel: ErrTransientStorage,
		},
		{
			name:      "sync aborted",
			err:       SyncAborted("delete batch", fmt.Errorf("deadlock detected")),
			code:      "SYNC_ABORTED",
			status:    http.StatusInternalServerError,
			sentinel:  ErrSyncAborted,
			inMessage: []string{"delete batch"},
		},
		{
			name:      "duplicate edge",
			err:       DuplicateEdge("FB03060M", fmt.Errorf("SQLSTATE 23505")),
			code:      "DUPLICATE_EDGE",
			status:    http.StatusConflict,
			sentinel:  ErrDuplicateEdge,
			inMessage: []string{"FB03060M"},
		},
		{
			name:      "interrupted run",
			err:       InterruptedRun(),
			code:      "INTERRUPTED_RUN",
			status:    http.StatusInternalServerError,
			sentinel:  ErrInterruptedRun,
			inMessage: []string{"interrupted by restart"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel), "constructor should wrap its sentinel")
			for _, want := range tt.inMessage {
				assert.Contains(t, tt.err.Message, want)
			}
		})
	}
}

func TestTransientStorage_KeepsCause(t *testing.T) {
	err := TransientStorage(fmt.Errorf("connection reset by peer"))
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestSyncAborted_WrapsTransient(t *testing.T) {
	err := SyncAborted("bulk insert", TransientStorage(fmt.Errorf("timeout")))
	assert.True(t, errors.Is(err, ErrSyncAborted))
	assert.True(t, errors.Is(err, ErrTransientStorage))
}

func TestDuplicateEdge_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("duplicate key value violates unique constraint (SQLSTATE 23505)")
	err := DuplicateEdge("FB03060M", cause)
	assert.True(t, errors.Is(err, ErrDuplicateEdge))
	assert.Contains(t, err.Error(), "23505")
}

// --- HTTPStatus ---

func TestHTTPStatus_AppErrorWins(t *testing.T) {
	appErr := InvalidFeed("row 12 has no sku")
	wrapped := fmt.Errorf("run sync: %w", appErr)
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(wrapped))
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
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
		{ErrSyncAborted, http.StatusInternalServerError},
		{ErrInterruptedRun, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_WrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("get product: %w", ErrNotFound)
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestHTTPStatus_UnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("unknown")))
}
