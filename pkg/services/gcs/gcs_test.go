package gcs

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/eniz1806/UniStore/pkg/access"
)

func newTestBackend(t *testing.T, handler http.Handler) access.Accessor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	b, err := New(map[string]string{
		"bucket":   "test-bucket",
		"endpoint": srv.URL,
		"token":    "test-token",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	})
}

func TestMissingBucketIsConfigInvalid(t *testing.T) {
	if _, err := New(map[string]string{}); access.ErrorKind(err) != access.KindConfigInvalid {
		t.Fatalf("err = %v, want ConfigInvalid", err)
	}
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var got string
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	if _, err := b.Delete(context.Background(), "a.txt", access.OpDelete{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got != "Bearer test-token" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestDeleteMissingIsSuccess(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	if _, err := b.Delete(context.Background(), "gone.txt", access.OpDelete{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestReadRangePastEndIsEmpty(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}))
	rp, r, err := b.Read(context.Background(), "a.txt", access.OpRead{Range: access.RangeFrom(9999)})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if len(data) != 0 {
		t.Fatalf("body = %q, want empty", data)
	}
	if rp.Size == nil || *rp.Size != 0 {
		t.Fatalf("size = %v, want 0", rp.Size)
	}
}

func TestReadSendsRangeHeader(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=2-5" {
			t.Errorf("range header = %q", got)
		}
		w.WriteHeader(http.StatusPartialContent)
		io.WriteString(w, "2345")
	}))
	_, r, err := b.Read(context.Background(), "a.txt", access.OpRead{Range: access.NewRange(2, 4)})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "2345" {
		t.Fatalf("body = %q", data)
	}
}

func TestStatRootIsDirWithoutNetwork(t *testing.T) {
	b := newTestBackend(t, unreachable(t))
	rp, err := b.Stat(context.Background(), "/", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if rp.Meta.Kind != access.KindDir {
		t.Fatalf("kind = %v, want dir", rp.Meta.Kind)
	}
}

func TestStatMissingDirMarkerIsDir(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	rp, err := b.Stat(context.Background(), "logs/", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if rp.Meta.Kind != access.KindDir {
		t.Fatalf("kind = %v, want dir", rp.Meta.Kind)
	}
}

func TestStatFile(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"name":"a.txt","size":"11","contentType":"text/plain","etag":"CKih16GL"}`)
	}))
	rp, err := b.Stat(context.Background(), "a.txt", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if rp.Meta.Kind != access.KindFile || rp.Meta.ContentLength != 11 {
		t.Fatalf("meta = %+v", rp.Meta)
	}
	if rp.Meta.ETag != "CKih16GL" {
		t.Fatalf("etag = %q", rp.Meta.ETag)
	}
}

func TestStatMissingIsNotFound(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"No such object"}}`)
	}))
	_, err := b.Stat(context.Background(), "nope.txt", access.OpStat{})
	if !access.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	if !strings.Contains(err.Error(), "No such object") {
		t.Fatalf("service message lost: %v", err)
	}
}

func TestStatIfMatchMismatch(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"name":"a.txt","size":"4","etag":"actual"}`)
	}))
	_, err := b.Stat(context.Background(), "a.txt", access.OpStat{IfMatch: "expected"})
	if access.ErrorKind(err) != access.KindConditionNotMatch {
		t.Fatalf("err = %v, want ConditionNotMatch", err)
	}
}

func TestListPagination(t *testing.T) {
	calls := 0
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("delimiter") != "/" {
			t.Errorf("delimiter missing for non-recursive list")
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			io.WriteString(w, `{"items":[{"name":"a.txt","size":"1"}],"prefixes":["dir/"],"nextPageToken":"tok"}`)
		case "tok":
			io.WriteString(w, `{"items":[{"name":"z.txt","size":"1"}]}`)
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))

	_, pager, err := b.List(context.Background(), "/", access.OpList{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for {
		page, err := pager.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			got = append(got, e.Path)
		}
	}
	want := []string{"a.txt", "dir/", "z.txt"}
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", got, want)
		}
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestListStartAfterIsExclusive(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("startOffset"); got != "b.txt" {
			t.Errorf("startOffset = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		// startOffset is inclusive on the service side, so the cursor entry
		// comes back and must not be surfaced.
		io.WriteString(w, `{"items":[{"name":"b.txt","size":"1"},{"name":"c.txt","size":"1"}]}`)
	}))

	_, pager, err := b.List(context.Background(), "/", access.OpList{StartAfter: "b.txt"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	page, err := pager.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(page) != 1 || page[0].Path != "c.txt" {
		t.Fatalf("page = %+v, want just c.txt", page)
	}
}

func TestWriteResumable(t *testing.T) {
	var uploaded []byte
	var ranges []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/storage/v1/b/test-bucket/o", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("uploadType") != "resumable" {
			t.Errorf("uploadType = %q", r.URL.Query().Get("uploadType"))
		}
		w.Header().Set("Location", "http://"+r.Host+"/session/1")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /session/1", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		uploaded = append(uploaded, body...)
		cr := r.Header.Get("Content-Range")
		ranges = append(ranges, cr)
		if strings.HasSuffix(cr, "/*") {
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	b := newTestBackend(t, mux)

	ctx := context.Background()
	_, w, err := b.Write(ctx, "big.bin", access.OpWrite{ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	payload := strings.Repeat("x", uploadAlign+100)
	if _, err := w.Write(ctx, []byte(payload)); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if string(uploaded) != payload {
		t.Fatalf("uploaded %d bytes, want %d", len(uploaded), len(payload))
	}
	if len(ranges) != 2 {
		t.Fatalf("ranges = %v, want 2 chunks", ranges)
	}
	if want := fmt.Sprintf("bytes 0-%d/*", uploadAlign-1); ranges[0] != want {
		t.Fatalf("first range = %q, want %q", ranges[0], want)
	}
	if want := fmt.Sprintf("bytes %d-%d/%d", uploadAlign, len(payload)-1, len(payload)); ranges[1] != want {
		t.Fatalf("final range = %q, want %q", ranges[1], want)
	}
}

func TestWriteEmptyObject(t *testing.T) {
	var finalRange string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload/storage/v1/b/test-bucket/o", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/session/2")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /session/2", func(w http.ResponseWriter, r *http.Request) {
		finalRange = r.Header.Get("Content-Range")
		w.WriteHeader(http.StatusOK)
	})
	b := newTestBackend(t, mux)

	ctx := context.Background()
	_, w, err := b.Write(ctx, "empty.bin", access.OpWrite{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if finalRange != "bytes */0" {
		t.Fatalf("final range = %q, want %q", finalRange, "bytes */0")
	}
}

func TestBatchOverLimitStaysLocal(t *testing.T) {
	b := newTestBackend(t, unreachable(t))
	ops := make([]access.BatchOperation, maxBatchOperations+1)
	for i := range ops {
		ops[i] = access.BatchOperation{Kind: access.BatchDelete, Path: fmt.Sprintf("f-%d", i)}
	}
	_, err := b.Batch(context.Background(), access.OpBatch{Operations: ops})
	if !access.IsUnsupported(err) {
		t.Fatalf("err = %v, want Unsupported", err)
	}
	if !strings.Contains(err.Error(), "101") {
		t.Fatalf("count missing from error: %v", err)
	}
}

func batchResponse(t *testing.T, w http.ResponseWriter, statuses []int) {
	t.Helper()
	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	for _, status := range statuses {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/http")
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		fmt.Fprintf(part, "HTTP/1.1 %d %s\r\nContent-Length: 0\r\n\r\n", status, http.StatusText(status))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
}

func TestBatchDelete(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/batch/storage/v1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		batchResponse(t, w, []int{204, 404, 403})
	}))

	rp, err := b.Batch(context.Background(), access.OpBatch{Operations: []access.BatchOperation{
		{Kind: access.BatchDelete, Path: "a.txt"},
		{Kind: access.BatchDelete, Path: "missing.txt"},
		{Kind: access.BatchDelete, Path: "locked.txt"},
	}})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(rp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(rp.Results))
	}
	if rp.Results[0].Err != nil || rp.Results[1].Err != nil {
		t.Fatalf("2xx and 404 must both succeed: %+v", rp.Results)
	}
	if access.ErrorKind(rp.Results[2].Err) != access.KindPermissionDenied {
		t.Fatalf("third result = %v, want PermissionDenied", rp.Results[2].Err)
	}
	for i, path := range []string{"a.txt", "missing.txt", "locked.txt"} {
		if rp.Results[i].Path != path {
			t.Fatalf("result order broken: %+v", rp.Results)
		}
	}
}

func TestPresignStaysLocal(t *testing.T) {
	srv := httptest.NewServer(unreachable(t))
	defer srv.Close()
	b, err := New(map[string]string{
		"bucket":     "test-bucket",
		"endpoint":   srv.URL,
		"access_key": "GOOGAKID",
		"secret_key": "secret",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rp, err := b.Presign(context.Background(), "report.csv", access.OpPresign{
		Kind:   access.PresignRead,
		Expire: 3600e9,
	})
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}
	if rp.Request.Method != http.MethodGet {
		t.Fatalf("method = %q", rp.Request.Method)
	}
	u, err := url.Parse(rp.Request.URI)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	q := u.Query()
	if q.Get("X-Goog-Algorithm") != "GOOG4-HMAC-SHA256" {
		t.Fatalf("algorithm = %q", q.Get("X-Goog-Algorithm"))
	}
	if q.Get("X-Goog-Signature") == "" {
		t.Fatal("signature missing")
	}
	if q.Get("X-Goog-Expires") != "3600" {
		t.Fatalf("expires = %q", q.Get("X-Goog-Expires"))
	}
	if !strings.HasPrefix(u.Path, "/test-bucket/") {
		t.Fatalf("path = %q", u.Path)
	}
}

func TestPresignWithoutKeysIsUnsupported(t *testing.T) {
	b := newTestBackend(t, unreachable(t))
	_, err := b.Presign(context.Background(), "a.txt", access.OpPresign{Kind: access.PresignRead, Expire: 3600e9})
	if !access.IsUnsupported(err) {
		t.Fatalf("err = %v, want Unsupported", err)
	}
}

func TestRetryableClassification(t *testing.T) {
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	_, err := b.Stat(context.Background(), "a.txt", access.OpStat{})
	if !access.IsRetryable(err) {
		t.Fatalf("err = %v, want retryable", err)
	}
	b = newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err = b.Stat(context.Background(), "a.txt", access.OpStat{})
	if access.ErrorKind(err) != access.KindRateLimited || !access.IsRetryable(err) {
		t.Fatalf("err = %v, want retryable RateLimited", err)
	}
}
