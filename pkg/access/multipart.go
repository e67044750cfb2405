package access

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// DecodeBatchResponse splits an aggregate multipart/mixed response body into
// one outcome per input path. Each part carries an embedded HTTP response;
// the Nth part corresponds to the Nth input path. A NotFound part counts as
// success, matching the idempotent delete contract. classify turns a
// non-success embedded response into the backend's Error.
//
// Malformed aggregate payloads (bad content type, missing boundary, part
// count mismatch, unparseable parts) are Unexpected: the aggregate request
// ostensibly succeeded, so the failure is ours to report, not the backend's.
func DecodeBatchResponse(contentType string, body []byte, paths []string, classify func(status int, body []byte) error) ([]BatchResult, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, NewError(KindUnexpected, "batch response content type is unparseable").
			WithOperation("batch").WithContext("content_type", contentType).WithCause(err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, NewError(KindUnexpected, "batch response is not multipart").
			WithOperation("batch").WithContext("content_type", contentType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, NewError(KindUnexpected, "batch response has no multipart boundary").
			WithOperation("batch")
	}

	results := make([]BatchResult, 0, len(paths))
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewError(KindUnexpected, "batch response part is unreadable").
				WithOperation("batch").WithCause(err)
		}
		if len(results) >= len(paths) {
			return nil, NewError(KindUnexpected, "batch response has more parts than requested operations").
				WithOperation("batch").WithContext("count", fmt.Sprintf("%d", len(paths)))
		}
		status, partBody, err := readEmbeddedResponse(part)
		if err != nil {
			return nil, err
		}
		path := paths[len(results)]
		if (status >= 200 && status < 300) || status == http.StatusNotFound {
			results = append(results, BatchResult{Path: path})
		} else {
			itemErr := classify(status, partBody)
			results = append(results, BatchResult{Path: path, Err: itemErr})
		}
	}
	if len(results) != len(paths) {
		return nil, NewError(KindUnexpected, "batch response part count does not match requested operations").
			WithOperation("batch").
			WithContext("parts", fmt.Sprintf("%d", len(results))).
			WithContext("count", fmt.Sprintf("%d", len(paths)))
	}
	return results, nil
}

func readEmbeddedResponse(part *multipart.Part) (int, []byte, error) {
	raw, err := io.ReadAll(part)
	if err != nil {
		return 0, nil, NewError(KindUnexpected, "batch response part body is unreadable").
			WithOperation("batch").WithCause(err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return 0, nil, NewError(KindUnexpected, "batch response part is not an HTTP response").
			WithOperation("batch").WithCause(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Embedded responses are already fully buffered; treat short reads
		// as an empty body rather than failing the whole decode.
		body = nil
	}
	return resp.StatusCode, body, nil
}
