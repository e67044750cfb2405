// Package operator wraps an access backend behind capability gating: calls a
// backend's Capability rules out fail as Unsupported before any wire traffic,
// so the caller sees one behavior across every service.
package operator

import (
	"context"
	"fmt"
	"io"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Operator is the user-facing handle for one configured backend.
type Operator struct {
	inner access.Accessor
}

// New wraps an accessor. Layers compose by wrapping the accessor before it is
// handed here.
func New(inner access.Accessor) *Operator {
	return &Operator{inner: inner}
}

func (o *Operator) Info() *access.AccessorInfo { return o.inner.Info() }

// Inner exposes the wrapped accessor for layer composition.
func (o *Operator) Inner() access.Accessor { return o.inner }

func unsupported(op, detail string) error {
	return access.NewError(access.KindUnsupported, detail).WithOperation(op)
}

func (o *Operator) CreateDir(ctx context.Context, path string, args access.OpCreateDir) error {
	if !o.Info().Capability().CreateDir {
		return unsupported("create_dir", "backend does not support create_dir")
	}
	_, err := o.inner.CreateDir(ctx, path, args)
	return err
}

func (o *Operator) Read(ctx context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	cap := o.Info().Capability()
	switch {
	case !cap.Read:
		return access.RpRead{}, nil, unsupported("read", "backend does not support read")
	case !args.Range.IsFull() && !cap.ReadWithRange:
		return access.RpRead{}, nil, unsupported("read", "backend does not support ranged reads")
	case args.IfMatch != "" && !cap.ReadWithIfMatch:
		return access.RpRead{}, nil, unsupported("read", "backend does not support if_match")
	case args.IfNoneMatch != "" && !cap.ReadWithIfNoneMatch:
		return access.RpRead{}, nil, unsupported("read", "backend does not support if_none_match")
	}
	return o.inner.Read(ctx, path, args)
}

// ReadAll drains one object into memory.
func (o *Operator) ReadAll(ctx context.Context, path string) ([]byte, error) {
	_, r, err := o.Read(ctx, path, access.OpRead{})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, access.NewError(access.KindUnexpected, "read stream failed").
			WithOperation("read").WithContext("path", path).WithCause(err)
	}
	return data, nil
}

func (o *Operator) Write(ctx context.Context, path string, args access.OpWrite) (access.Writer, error) {
	cap := o.Info().Capability()
	switch {
	case !cap.Write:
		return nil, unsupported("write", "backend does not support write")
	case args.ContentType != "" && !cap.WriteWithContentType:
		return nil, unsupported("write", "backend does not support content_type")
	}
	_, w, err := o.inner.Write(ctx, path, args)
	return w, err
}

// WriteAll commits data as the whole object.
func (o *Operator) WriteAll(ctx context.Context, path string, data []byte, args access.OpWrite) error {
	if len(data) == 0 && !o.Info().Capability().WriteCanEmpty {
		return unsupported("write", "backend does not support empty objects")
	}
	w, err := o.Write(ctx, path, args)
	if err != nil {
		return err
	}
	if _, err := w.Write(ctx, data); err != nil {
		w.Abort(ctx)
		return err
	}
	return w.Close(ctx)
}

func (o *Operator) Stat(ctx context.Context, path string, args access.OpStat) (access.Metadata, error) {
	cap := o.Info().Capability()
	switch {
	case !cap.Stat:
		return access.Metadata{}, unsupported("stat", "backend does not support stat")
	case args.IfMatch != "" && !cap.StatWithIfMatch:
		return access.Metadata{}, unsupported("stat", "backend does not support if_match")
	case args.IfNoneMatch != "" && !cap.StatWithIfNoneMatch:
		return access.Metadata{}, unsupported("stat", "backend does not support if_none_match")
	}
	rp, err := o.inner.Stat(ctx, path, args)
	return rp.Meta, err
}

// Exists reports whether path resolves, folding NotFound into false.
func (o *Operator) Exists(ctx context.Context, path string) (bool, error) {
	_, err := o.Stat(ctx, path, access.OpStat{})
	if access.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (o *Operator) Delete(ctx context.Context, path string) error {
	if !o.Info().Capability().Delete {
		return unsupported("delete", "backend does not support delete")
	}
	_, err := o.inner.Delete(ctx, path, access.OpDelete{})
	return err
}

func (o *Operator) Copy(ctx context.Context, from, to string) error {
	if !o.Info().Capability().Copy {
		return unsupported("copy", "backend does not support copy")
	}
	_, err := o.inner.Copy(ctx, from, to, access.OpCopy{})
	return err
}

func (o *Operator) List(ctx context.Context, path string, args access.OpList) (access.Pager, error) {
	cap := o.Info().Capability()
	switch {
	case !cap.List:
		return nil, unsupported("list", "backend does not support list")
	case args.Recursive && !cap.ListWithRecursive:
		return nil, unsupported("list", "backend does not support recursive listing")
	case args.StartAfter != "" && !cap.ListWithStartAfter:
		return nil, unsupported("list", "backend does not support start_after")
	}
	_, pager, err := o.inner.List(ctx, path, args)
	return pager, err
}

// ListAll drains every page of a listing.
func (o *Operator) ListAll(ctx context.Context, path string, args access.OpList) ([]access.Entry, error) {
	pager, err := o.List(ctx, path, args)
	if err != nil {
		return nil, err
	}
	var entries []access.Entry
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return entries, nil
		}
		entries = append(entries, page...)
	}
}

func (o *Operator) Batch(ctx context.Context, args access.OpBatch) ([]access.BatchResult, error) {
	cap := o.Info().Capability()
	if !cap.Batch {
		return nil, unsupported("batch", "backend does not support batch")
	}
	if cap.BatchMaxOperations > 0 && len(args.Operations) > cap.BatchMaxOperations {
		return nil, access.NewError(access.KindUnsupported,
			fmt.Sprintf("batch accepts at most %d operations", cap.BatchMaxOperations)).
			WithOperation("batch").WithContext("count", fmt.Sprintf("%d", len(args.Operations)))
	}
	rp, err := o.inner.Batch(ctx, args)
	return rp.Results, err
}

// RemoveAll deletes everything under path: recursive listing when the backend
// has it, otherwise a directory walk. Deletion runs deepest-first so
// directory markers go after their contents.
func (o *Operator) RemoveAll(ctx context.Context, path string) error {
	if !access.IsDirPath(path) {
		return o.Delete(ctx, path)
	}
	entries, err := o.removeAllEntries(ctx, path)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(entries)+1)
	for i := len(entries) - 1; i >= 0; i-- {
		paths = append(paths, entries[i].Path)
	}
	if path != "/" {
		paths = append(paths, path)
	}
	if o.Info().Capability().Batch {
		return o.removeBatched(ctx, paths)
	}
	for _, p := range paths {
		if err := o.Delete(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// removeBatched deletes paths in order through Batch, chunked to the
// backend's declared per-call limit.
func (o *Operator) removeBatched(ctx context.Context, paths []string) error {
	limit := o.Info().Capability().BatchMaxOperations
	if limit <= 0 {
		limit = len(paths)
	}
	for len(paths) > 0 {
		n := limit
		if n > len(paths) {
			n = len(paths)
		}
		ops := make([]access.BatchOperation, n)
		for i, p := range paths[:n] {
			ops[i] = access.BatchOperation{Kind: access.BatchDelete, Path: p}
		}
		results, err := o.Batch(ctx, access.OpBatch{Operations: ops})
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				return r.Err
			}
		}
		paths = paths[n:]
	}
	return nil
}

func (o *Operator) removeAllEntries(ctx context.Context, path string) ([]access.Entry, error) {
	if o.Info().Capability().ListWithRecursive {
		return o.ListAll(ctx, path, access.OpList{Recursive: true})
	}
	var all []access.Entry
	pending := []string{path}
	for len(pending) > 0 {
		dir := pending[0]
		pending = pending[1:]
		entries, err := o.ListAll(ctx, dir, access.OpList{})
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			all = append(all, e)
			if e.Meta.IsDir() {
				pending = append(pending, e.Path)
			}
		}
	}
	return all, nil
}

func (o *Operator) Presign(ctx context.Context, path string, args access.OpPresign) (access.PresignedRequest, error) {
	cap := o.Info().Capability()
	switch {
	case !cap.Presign:
		return access.PresignedRequest{}, unsupported("presign", "backend does not support presign")
	case args.Kind == access.PresignStat && !cap.PresignStat,
		args.Kind == access.PresignRead && !cap.PresignRead,
		args.Kind == access.PresignWrite && !cap.PresignWrite:
		return access.PresignedRequest{}, unsupported("presign",
			fmt.Sprintf("backend does not support presigned %s", args.Kind))
	}
	rp, err := o.inner.Presign(ctx, path, args)
	return rp.Request, err
}
