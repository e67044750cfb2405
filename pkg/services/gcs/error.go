package gcs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/eniz1806/UniStore/pkg/access"
)

// classify maps a non-success status plus error payload onto the closed error
// taxonomy. The service message, when present, becomes the error message so
// operators see what the service said, not a local paraphrase.
func classify(status int, body []byte) error {
	message := fmt.Sprintf("service replied with status %d", status)
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		message = payload.Error.Message
	}

	var kind access.Kind
	retryable := false
	switch status {
	case http.StatusNotFound:
		kind = access.KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = access.KindPermissionDenied
	case http.StatusNotModified, http.StatusPreconditionFailed:
		kind = access.KindConditionNotMatch
	case http.StatusTooManyRequests:
		kind = access.KindRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		kind = access.KindUnexpected
		retryable = true
	default:
		kind = access.KindUnexpected
	}

	e := access.NewError(kind, message).WithContext("status", fmt.Sprintf("%d", status))
	if retryable {
		e = e.MarkRetryable()
	}
	return e
}

// responseError drains and classifies an error response.
func responseError(op, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	err := classify(resp.StatusCode, body)
	var ae *access.Error
	if e, ok := err.(*access.Error); ok {
		ae = e
	} else {
		return err
	}
	ae = ae.WithOperation(op)
	if path != "" {
		ae = ae.WithContext("path", path)
	}
	return ae
}
