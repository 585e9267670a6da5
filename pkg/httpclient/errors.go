package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/baignoire/fitmatch/pkg/errors"
)

// downstreamBody mirrors the standard error envelope, so services speaking it
// have their code and message carried into the resulting AppError.
type downstreamBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const maxErrorBody = 1 << 20

// ParseResponseError consumes the body of a non-2xx response and translates
// it into an application error. Structured envelope bodies keep their code
// and message; anything else becomes a plain error carrying the status and
// raw body. The body is always closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var body downstreamBody
	if json.Unmarshal(raw, &body) != nil || body.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, raw)
	}
	return mapDownstream(resp.StatusCode, body.Error.Code, body.Error.Message, serviceName)
}

// mapDownstream picks the application error that preserves the downstream
// failure's semantics. Statuses of 500 and above stay plain errors; they say
// nothing about this request being wrong.
func mapDownstream(status int, code, message, serviceName string) error {
	qualified := serviceName + ": " + message

	switch status {
	case http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case http.StatusUnprocessableEntity:
		return apperrors.InvalidFeed(qualified)
	case http.StatusServiceUnavailable:
		return &apperrors.AppError{
			Code:    code,
			Message: qualified,
			Status:  status,
			Err:     apperrors.ErrServiceUnavail,
		}
	}

	if status >= 500 {
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	}
	return &apperrors.AppError{Code: code, Message: qualified, Status: status}
}

// IsClientError reports whether status is a 4xx. A client error means the
// request itself is wrong, so repeating the same fetch cannot succeed.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
