package webhdfs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/eniz1806/UniStore/pkg/access"
)

// rangeExceededMessage marks the namenode's complaint about a read window
// past the end of the file. The status is 403, so it must be detected by
// message before permission classification.
const rangeExceededMessage = "out of the range"

func classify(status int, body []byte) error {
	message := fmt.Sprintf("service replied with status %d", status)
	exception := ""
	var payload remoteExceptionResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.RemoteException.Message != "" {
		message = payload.RemoteException.Message
		exception = payload.RemoteException.Exception
	}

	var kind access.Kind
	retryable := false
	switch {
	case status == http.StatusNotFound || exception == "FileNotFoundException":
		kind = access.KindNotFound
	case exception == "AccessControlException" || exception == "SecurityException" ||
		status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = access.KindPermissionDenied
	case status == http.StatusTooManyRequests:
		kind = access.KindRateLimited
	case status >= 500:
		kind = access.KindUnexpected
		retryable = true
	default:
		kind = access.KindUnexpected
	}

	e := access.NewError(kind, message).WithContext("status", fmt.Sprintf("%d", status))
	if exception != "" {
		e = e.WithContext("exception", exception)
	}
	if retryable {
		e = e.MarkRetryable()
	}
	return e
}

// responseError drains and classifies an error response. isRangeExceeded
// reports whether the drained response was the out-of-range rejection, which
// read treats as a successful empty result.
func responseError(op, path string, resp *http.Response) (err error, isRangeExceeded bool) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode == http.StatusForbidden && strings.Contains(string(body), rangeExceededMessage) {
		return nil, true
	}
	e := classify(resp.StatusCode, body)
	if ae, ok := e.(*access.Error); ok {
		ae = ae.WithOperation(op)
		if path != "" {
			ae = ae.WithContext("path", path)
		}
		return ae, false
	}
	return e, false
}
