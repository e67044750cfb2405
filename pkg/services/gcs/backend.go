// Package gcs provides a backend over the Google Cloud Storage JSON API.
// Bearer tokens authorize the data plane; optional HMAC keys enable signed
// query presigning.
package gcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Backend implements the Accessor contract against one bucket.
type Backend struct {
	core *core
	info *access.AccessorInfo
}

// New builds a GCS backend. Options: "bucket" (required), "root", "endpoint"
// (default https://storage.googleapis.com), "token" (static bearer token),
// "access_key" and "secret_key" (HMAC pair; both present enables presign).
func New(opts map[string]string) (access.Accessor, error) {
	return NewWithClient(opts, http.DefaultClient, nil)
}

// NewWithClient is New with an explicit HTTP client and an optional token
// source overriding the static "token" option.
func NewWithClient(opts map[string]string, client *http.Client, source TokenSource) (access.Accessor, error) {
	bucket := opts["bucket"]
	if bucket == "" {
		return nil, access.NewError(access.KindConfigInvalid, "bucket is not configured").
			WithOperation("new").WithContext("field", "bucket")
	}
	endpoint := strings.TrimSuffix(opts["endpoint"], "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if source == nil && opts["token"] != "" {
		source = StaticTokenSource(opts["token"])
	}

	c := &core{
		client:    client,
		endpoint:  endpoint,
		bucket:    bucket,
		root:      access.NormalizeRoot(opts["root"]),
		accessKey: opts["access_key"],
		secretKey: opts["secret_key"],
	}
	if source != nil {
		c.tokens = &tokenCache{source: source}
	}

	presign := c.accessKey != "" && c.secretKey != ""
	cap := access.Capability{
		Stat:                 true,
		StatWithIfMatch:      true,
		StatWithIfNoneMatch:  true,
		Read:                 true,
		ReadWithRange:        true,
		ReadWithIfMatch:      true,
		ReadWithIfNoneMatch:  true,
		Write:                true,
		WriteCanEmpty:        true,
		WriteCanMulti:        true,
		WriteWithContentType: true,
		WriteMultiAlignSize:  uploadAlign,
		CreateDir:            true,
		Delete:               true,
		Copy:                 true,
		List:                 true,
		ListWithLimit:        true,
		ListWithStartAfter:   true,
		ListWithRecursive:    true,
		Batch:                true,
		BatchMaxOperations:   maxBatchOperations,
		Presign:              presign,
		PresignStat:          presign,
		PresignRead:          presign,
		PresignWrite:         presign,
	}
	return &Backend{
		core: c,
		info: access.NewAccessorInfo(access.SchemeGcs, c.root, bucket, cap),
	}, nil
}

func (b *Backend) Info() *access.AccessorInfo { return b.info }

func (b *Backend) key(path string) string {
	return access.BuildAbsPath(b.core.root, path)
}

func (b *Backend) CreateDir(ctx context.Context, path string, _ access.OpCreateDir) (access.RpCreateDir, error) {
	key := b.key(path)
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	uploadURL := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		b.core.endpoint, url.PathEscape(b.core.bucket), url.QueryEscape(key))
	req, err := b.core.newRequest(ctx, http.MethodPost, uploadURL, bytes.NewReader(nil))
	if err != nil {
		return access.RpCreateDir{}, err
	}
	resp, err := b.core.send(req)
	if err != nil {
		return access.RpCreateDir{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return access.RpCreateDir{}, responseError("create_dir", path, resp)
	}
	return access.RpCreateDir{}, nil
}

func (b *Backend) Read(ctx context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	req, err := b.core.newRequest(ctx, http.MethodGet, b.core.objectURL(b.key(path))+"?alt=media", nil)
	if err != nil {
		return access.RpRead{}, nil, err
	}
	if !args.Range.IsFull() {
		req.Header.Set("Range", args.Range.ToHeader())
	}
	if args.IfMatch != "" {
		req.Header.Set("If-Match", args.IfMatch)
	}
	if args.IfNoneMatch != "" {
		req.Header.Set("If-None-Match", args.IfNoneMatch)
	}

	resp, err := b.core.send(req)
	if err != nil {
		return access.RpRead{}, nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		rp := access.RpRead{}
		if resp.ContentLength >= 0 {
			size := resp.ContentLength
			rp.Size = &size
		}
		return rp, resp.Body, nil
	case http.StatusRequestedRangeNotSatisfiable:
		// The requested window lies past the end of the object: a successful
		// empty read, not a failure.
		resp.Body.Close()
		zero := int64(0)
		return access.RpRead{Size: &zero}, io.NopCloser(strings.NewReader("")), nil
	default:
		defer resp.Body.Close()
		return access.RpRead{}, nil, responseError("read", path, resp)
	}
}

func (b *Backend) Write(ctx context.Context, path string, args access.OpWrite) (access.RpWrite, access.Writer, error) {
	session, err := b.startResumable(ctx, b.key(path), args)
	if err != nil {
		return access.RpWrite{}, nil, err
	}
	w, err := access.NewAlignedWriter(&resumableUpload{core: b.core, path: path, session: session}, uploadAlign)
	if err != nil {
		return access.RpWrite{}, nil, err
	}
	return access.RpWrite{}, w, nil
}

func (b *Backend) startResumable(ctx context.Context, key string, args access.OpWrite) (string, error) {
	meta := map[string]string{"name": key}
	if args.ContentType != "" {
		meta["contentType"] = args.ContentType
	}
	if args.StorageClass != "" {
		meta["storageClass"] = args.StorageClass
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", access.NewError(access.KindUnexpected, "cannot encode upload metadata").
			WithOperation("write").WithCause(err)
	}

	startURL := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=resumable",
		b.core.endpoint, url.PathEscape(b.core.bucket))
	if args.PredefinedACL != "" {
		startURL += "&predefinedAcl=" + url.QueryEscape(args.PredefinedACL)
	}
	req, err := b.core.newRequest(ctx, http.MethodPost, startURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.core.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", responseError("write", key, resp)
	}
	session := resp.Header.Get("Location")
	if session == "" {
		return "", access.NewError(access.KindUnexpected, "upload session has no location").
			WithOperation("write").WithContext("path", key)
	}
	return session, nil
}

func (b *Backend) Stat(ctx context.Context, path string, args access.OpStat) (access.RpStat, error) {
	if path == "/" || path == "" {
		return access.RpStat{Meta: access.NewMetadata(access.KindDir)}, nil
	}

	req, err := b.core.newRequest(ctx, http.MethodGet, b.core.objectURL(b.key(path)), nil)
	if err != nil {
		return access.RpStat{}, err
	}
	resp, err := b.core.send(req)
	if err != nil {
		return access.RpStat{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && access.IsDirPath(path) {
		// Directories are a prefix convention; a missing marker object still
		// stats as a directory.
		return access.RpStat{Meta: access.NewMetadata(access.KindDir)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return access.RpStat{}, responseError("stat", path, resp)
	}

	var info objectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return access.RpStat{}, access.NewError(access.KindUnexpected, "object metadata is unparseable").
			WithOperation("stat").WithContext("path", path).WithCause(err)
	}
	meta := info.metadata()
	if access.IsDirPath(path) {
		meta.Kind = access.KindDir
	}
	if args.IfMatch != "" && meta.ETag != args.IfMatch {
		return access.RpStat{}, access.NewError(access.KindConditionNotMatch, "etag does not match").
			WithOperation("stat").WithContext("path", path)
	}
	if args.IfNoneMatch != "" && meta.ETag == args.IfNoneMatch {
		return access.RpStat{}, access.NewError(access.KindConditionNotMatch, "etag matches").
			WithOperation("stat").WithContext("path", path)
	}
	return access.RpStat{Meta: meta}, nil
}

func (b *Backend) Delete(ctx context.Context, path string, _ access.OpDelete) (access.RpDelete, error) {
	req, err := b.core.newRequest(ctx, http.MethodDelete, b.core.objectURL(b.key(path)), nil)
	if err != nil {
		return access.RpDelete{}, err
	}
	resp, err := b.core.send(req)
	if err != nil {
		return access.RpDelete{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK ||
		resp.StatusCode == http.StatusNotFound {
		return access.RpDelete{}, nil
	}
	return access.RpDelete{}, responseError("delete", path, resp)
}

func (b *Backend) Copy(ctx context.Context, from, to string, _ access.OpCopy) (access.RpCopy, error) {
	copyURL := fmt.Sprintf("%s/copyTo/b/%s/o/%s",
		b.core.objectURL(b.key(from)), url.PathEscape(b.core.bucket), url.PathEscape(b.key(to)))
	req, err := b.core.newRequest(ctx, http.MethodPost, copyURL, nil)
	if err != nil {
		return access.RpCopy{}, err
	}
	resp, err := b.core.send(req)
	if err != nil {
		return access.RpCopy{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return access.RpCopy{}, responseError("copy", from, resp)
	}
	return access.RpCopy{}, nil
}

func (b *Backend) List(_ context.Context, path string, args access.OpList) (access.RpList, access.Pager, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListPage
	}
	return access.RpList{}, &objectPager{
		core:       b.core,
		path:       path,
		prefix:     access.BuildAbsPath(b.core.root, path),
		recursive:  args.Recursive,
		limit:      limit,
		startAfter: args.StartAfter,
	}, nil
}

func (b *Backend) Batch(ctx context.Context, args access.OpBatch) (access.RpBatch, error) {
	if len(args.Operations) == 0 {
		return access.RpBatch{}, nil
	}
	if len(args.Operations) > maxBatchOperations {
		return access.RpBatch{}, access.NewError(access.KindUnsupported,
			fmt.Sprintf("batch accepts at most %d operations", maxBatchOperations)).
			WithOperation("batch").WithContext("count", fmt.Sprintf("%d", len(args.Operations)))
	}
	paths := make([]string, 0, len(args.Operations))
	for _, op := range args.Operations {
		if op.Kind != access.BatchDelete {
			return access.RpBatch{}, access.NewError(access.KindUnsupported,
				fmt.Sprintf("batch does not support %q operations", op.Kind)).
				WithOperation("batch").WithContext("path", op.Path)
		}
		paths = append(paths, op.Path)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range paths {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/http")
		header.Set("Content-Transfer-Encoding", "binary")
		part, err := mw.CreatePart(header)
		if err != nil {
			return access.RpBatch{}, access.NewError(access.KindUnexpected, "cannot build batch body").
				WithOperation("batch").WithCause(err)
		}
		fmt.Fprintf(part, "DELETE /storage/v1/b/%s/o/%s HTTP/1.1\r\n\r\n",
			url.PathEscape(b.core.bucket), url.PathEscape(b.key(p)))
	}
	if err := mw.Close(); err != nil {
		return access.RpBatch{}, access.NewError(access.KindUnexpected, "cannot finish batch body").
			WithOperation("batch").WithCause(err)
	}

	req, err := b.core.newRequest(ctx, http.MethodPost, b.core.endpoint+"/batch/storage/v1", &body)
	if err != nil {
		return access.RpBatch{}, err
	}
	req.Header.Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())

	resp, err := b.core.send(req)
	if err != nil {
		return access.RpBatch{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return access.RpBatch{}, responseError("batch", "", resp)
	}
	aggregate, err := io.ReadAll(resp.Body)
	if err != nil {
		return access.RpBatch{}, access.NewError(access.KindUnexpected, "batch response body is unreadable").
			WithOperation("batch").WithCause(err)
	}

	results, err := access.DecodeBatchResponse(resp.Header.Get("Content-Type"), aggregate, paths, classify)
	if err != nil {
		return access.RpBatch{}, err
	}
	return access.RpBatch{Results: results}, nil
}

func (b *Backend) Presign(_ context.Context, path string, args access.OpPresign) (access.RpPresign, error) {
	if b.core.accessKey == "" || b.core.secretKey == "" {
		return access.RpPresign{}, access.NewError(access.KindUnsupported, "presign requires an hmac key pair").
			WithOperation("presign").WithContext("path", path)
	}
	if args.Expire <= 0 {
		return access.RpPresign{}, access.NewError(access.KindConfigInvalid, "presign expiry must be positive").
			WithOperation("presign").WithContext("path", path)
	}

	var method string
	header := http.Header{}
	switch args.Kind {
	case access.PresignRead:
		method = http.MethodGet
		if !args.Read.Range.IsFull() {
			header.Set("Range", args.Read.Range.ToHeader())
		}
	case access.PresignWrite:
		method = http.MethodPut
		if args.Write.ContentType != "" {
			header.Set("Content-Type", args.Write.ContentType)
		}
	default:
		method = http.MethodHead
	}

	uri := b.core.signQuery(method, b.key(path), args.Expire, time.Now().UTC())
	return access.RpPresign{Request: access.PresignedRequest{
		Method: method,
		URI:    uri,
		Header: header,
	}}, nil
}
