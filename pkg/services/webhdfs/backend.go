// Package webhdfs provides a backend over the Hadoop WebHDFS REST API.
package webhdfs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/eniz1806/UniStore/pkg/access"
)

const defaultEndpoint = "http://127.0.0.1:9870"

// Backend implements the Accessor contract against one namenode.
type Backend struct {
	info   *access.AccessorInfo
	client *http.Client

	endpoint         string
	root             string
	delegation       string
	user             string
	disableListBatch bool

	rootGroup singleflight.Group
	rootReady atomic.Bool
}

// New builds a WebHDFS backend. Options: "endpoint" (default
// http://127.0.0.1:9870, "http://" is prepended when no scheme is given),
// "root", "delegation" (delegation token), "user" (user.name query
// parameter), "disable_list_batch" ("true" forces single-shot LISTSTATUS).
func New(opts map[string]string) (access.Accessor, error) {
	return NewWithClient(opts, http.DefaultClient)
}

// NewWithClient is New with an explicit HTTP client.
func NewWithClient(opts map[string]string, client *http.Client) (access.Accessor, error) {
	endpoint := strings.TrimSuffix(opts["endpoint"], "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	b := &Backend{
		client:           client,
		endpoint:         endpoint,
		root:             access.NormalizeRoot(opts["root"]),
		delegation:       opts["delegation"],
		user:             opts["user"],
		disableListBatch: opts["disable_list_batch"] == "true",
	}
	cap := access.Capability{
		Stat:               true,
		Read:               true,
		ReadWithRange:      true,
		Write:              true,
		WriteCanEmpty:      true,
		CreateDir:          true,
		Delete:             true,
		List:               true,
		ListWithLimit:      true,
		ListWithStartAfter: true,
	}
	b.info = access.NewAccessorInfo(access.SchemeWebhdfs, b.root, endpoint, cap)
	return b, nil
}

func (b *Backend) Info() *access.AccessorInfo { return b.info }

func (b *Backend) query(op string) url.Values {
	q := url.Values{}
	q.Set("op", op)
	if b.delegation != "" {
		q.Set("delegation", b.delegation)
	}
	if b.user != "" {
		q.Set("user.name", b.user)
	}
	return q
}

func (b *Backend) url(path string, query url.Values) string {
	abs := "/" + strings.TrimSuffix(access.BuildAbsPath(b.root, path), "/")
	segments := strings.Split(abs, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.endpoint + "/webhdfs/v1" + strings.Join(segments, "/") + "?" + query.Encode()
}

func (b *Backend) do(ctx context.Context, method, rawURL string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, access.NewError(access.KindUnexpected, "cannot build request").
			WithOperation(method).WithCause(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, access.NewError(access.KindUnexpected, "request failed").
			WithOperation(method).WithCause(err).MarkRetryable()
	}
	return resp, nil
}

// ensureRoot creates the root directory once per backend instance.
// Concurrent first operations share one MKDIRS call.
func (b *Backend) ensureRoot(ctx context.Context) error {
	if b.rootReady.Load() {
		return nil
	}
	_, err, _ := b.rootGroup.Do("root", func() (any, error) {
		if err := b.mkdirs(ctx, "/"); err != nil {
			return nil, err
		}
		b.rootReady.Store(true)
		return nil, nil
	})
	return err
}

func (b *Backend) mkdirs(ctx context.Context, path string) error {
	resp, err := b.do(ctx, http.MethodPut, b.url(path, b.query("MKDIRS")), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e, _ := responseError("create_dir", path, resp)
		return e
	}
	var result booleanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return access.NewError(access.KindUnexpected, "mkdirs response is unparseable").
			WithOperation("create_dir").WithContext("path", path).WithCause(err)
	}
	if !result.Boolean {
		return access.NewError(access.KindUnexpected, "mkdirs was refused").
			WithOperation("create_dir").WithContext("path", path)
	}
	return nil
}

func (b *Backend) CreateDir(ctx context.Context, path string, _ access.OpCreateDir) (access.RpCreateDir, error) {
	if err := b.ensureRoot(ctx); err != nil {
		return access.RpCreateDir{}, err
	}
	if err := b.mkdirs(ctx, path); err != nil {
		return access.RpCreateDir{}, err
	}
	return access.RpCreateDir{}, nil
}

func (b *Backend) Read(ctx context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	if args.Range.Offset == nil && args.Range.Size != nil {
		return access.RpRead{}, nil, access.NewError(access.KindUnsupported, "suffix ranges are not supported").
			WithOperation("read").WithContext("path", path)
	}

	query := b.query("OPEN")
	if args.Range.Offset != nil {
		query.Set("offset", strconv.FormatInt(*args.Range.Offset, 10))
	}
	if args.Range.Size != nil {
		query.Set("length", strconv.FormatInt(*args.Range.Size, 10))
	}

	resp, err := b.do(ctx, http.MethodGet, b.url(path, query), nil)
	if err != nil {
		return access.RpRead{}, nil, err
	}
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusPartialContent:
		rp := access.RpRead{}
		if resp.ContentLength >= 0 {
			size := resp.ContentLength
			rp.Size = &size
		}
		return rp, resp.Body, nil
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		zero := int64(0)
		return access.RpRead{Size: &zero}, io.NopCloser(strings.NewReader("")), nil
	default:
		defer resp.Body.Close()
		e, rangeExceeded := responseError("read", path, resp)
		if rangeExceeded {
			// The namenode rejects windows past the end of the file with 403;
			// the contract calls for a successful empty read.
			zero := int64(0)
			return access.RpRead{Size: &zero}, io.NopCloser(strings.NewReader("")), nil
		}
		return access.RpRead{}, nil, e
	}
}

func (b *Backend) Write(ctx context.Context, path string, args access.OpWrite) (access.RpWrite, access.Writer, error) {
	upload := &createUpload{backend: b, path: path, contentType: args.ContentType}
	return access.RpWrite{}, access.NewOneShotWriter(upload), nil
}

// createUpload commits a whole object through the two-step CREATE flow: the
// namenode hands back a datanode location, the payload goes there.
type createUpload struct {
	backend     *Backend
	path        string
	contentType string
}

func (u *createUpload) UploadAll(ctx context.Context, data []byte) error {
	b := u.backend
	if err := b.ensureRoot(ctx); err != nil {
		return err
	}

	query := b.query("CREATE")
	query.Set("overwrite", "true")
	query.Set("noredirect", "true")
	resp, err := b.do(ctx, http.MethodPut, b.url(u.path, query), nil)
	if err != nil {
		return err
	}
	var initiated locationResponse
	func() {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			err = json.NewDecoder(resp.Body).Decode(&initiated)
		} else {
			err, _ = responseError("write", u.path, resp)
		}
	}()
	if err != nil {
		return err
	}
	if initiated.Location == "" {
		return access.NewError(access.KindUnexpected, "create response has no location").
			WithOperation("write").WithContext("path", u.path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, initiated.Location, bytes.NewReader(data))
	if err != nil {
		return access.NewError(access.KindUnexpected, "cannot build upload request").
			WithOperation("write").WithContext("path", u.path).WithCause(err)
	}
	contentType := u.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	upload, err := b.client.Do(req)
	if err != nil {
		return access.NewError(access.KindUnexpected, "upload failed").
			WithOperation("write").WithContext("path", u.path).WithCause(err).MarkRetryable()
	}
	defer upload.Body.Close()
	if upload.StatusCode != http.StatusCreated && upload.StatusCode != http.StatusOK {
		e, _ := responseError("write", u.path, upload)
		return e
	}
	return nil
}

func (b *Backend) Stat(ctx context.Context, path string, _ access.OpStat) (access.RpStat, error) {
	if path == "/" || path == "" {
		return access.RpStat{Meta: access.NewMetadata(access.KindDir)}, nil
	}

	resp, err := b.do(ctx, http.MethodGet, b.url(path, b.query("GETFILESTATUS")), nil)
	if err != nil {
		return access.RpStat{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		e, _ := responseError("stat", path, resp)
		return access.RpStat{}, e
	}
	var status fileStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return access.RpStat{}, access.NewError(access.KindUnexpected, "file status is unparseable").
			WithOperation("stat").WithContext("path", path).WithCause(err)
	}
	return access.RpStat{Meta: status.FileStatus.metadata()}, nil
}

func (b *Backend) Delete(ctx context.Context, path string, _ access.OpDelete) (access.RpDelete, error) {
	query := b.query("DELETE")
	query.Set("recursive", "false")
	resp, err := b.do(ctx, http.MethodDelete, b.url(path, query), nil)
	if err != nil {
		return access.RpDelete{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return access.RpDelete{}, nil
	}
	e, _ := responseError("delete", path, resp)
	if access.IsNotFound(e) {
		return access.RpDelete{}, nil
	}
	return access.RpDelete{}, e
}

func (b *Backend) Copy(_ context.Context, from, _ string, _ access.OpCopy) (access.RpCopy, error) {
	return access.RpCopy{}, access.NewError(access.KindUnsupported, "webhdfs does not support copy").
		WithOperation("copy").WithContext("from", from)
}

func (b *Backend) List(_ context.Context, path string, args access.OpList) (access.RpList, access.Pager, error) {
	if args.Recursive {
		return access.RpList{}, nil, access.NewError(access.KindUnsupported, "recursive listing is not supported").
			WithOperation("list").WithContext("path", path)
	}
	return access.RpList{}, newStatusPager(b, path, args), nil
}

func (b *Backend) Batch(_ context.Context, _ access.OpBatch) (access.RpBatch, error) {
	return access.RpBatch{}, access.NewError(access.KindUnsupported, "webhdfs does not support batch").
		WithOperation("batch")
}

func (b *Backend) Presign(_ context.Context, path string, _ access.OpPresign) (access.RpPresign, error) {
	return access.RpPresign{}, access.NewError(access.KindUnsupported, "webhdfs does not support presign").
		WithOperation("presign").WithContext("path", path)
}
