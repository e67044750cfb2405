// Package events publishes a change event after every successful mutation.
// Delivery is best effort: a failed publish is logged, never surfaced to the
// caller, and never rolls back the mutation it describes.
package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Event is the JSON payload describing one mutation.
type Event struct {
	Scheme    string `json:"scheme"`
	Backend   string `json:"backend"`
	Operation string `json:"operation"`
	Path      string `json:"path"`
	Time      string `json:"time"`
}

// Publisher delivers serialized events somewhere.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, payload []byte) error
	Close() error
}

// Wrap decorates inner so every successful mutation emits an event to every
// publisher.
func Wrap(inner access.Accessor, publishers ...Publisher) access.Accessor {
	return &accessor{inner: inner, publishers: publishers}
}

type accessor struct {
	inner      access.Accessor
	publishers []Publisher
}

func (a *accessor) emit(ctx context.Context, operation, path string) {
	info := a.inner.Info()
	payload, err := json.Marshal(Event{
		Scheme:    string(info.Scheme()),
		Backend:   info.Name(),
		Operation: operation,
		Path:      path,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Error("event marshal failed", "operation", operation, "path", path, "error", err)
		return
	}
	for _, p := range a.publishers {
		if err := p.Publish(ctx, payload); err != nil {
			slog.Error("event publish failed", "publisher", p.Name(), "operation", operation, "path", path, "error", err)
		}
	}
}

func (a *accessor) Info() *access.AccessorInfo { return a.inner.Info() }

func (a *accessor) CreateDir(ctx context.Context, path string, args access.OpCreateDir) (access.RpCreateDir, error) {
	rp, err := a.inner.CreateDir(ctx, path, args)
	if err == nil {
		a.emit(ctx, "create_dir", path)
	}
	return rp, err
}

func (a *accessor) Read(ctx context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	return a.inner.Read(ctx, path, args)
}

func (a *accessor) Write(ctx context.Context, path string, args access.OpWrite) (access.RpWrite, access.Writer, error) {
	rp, w, err := a.inner.Write(ctx, path, args)
	if err != nil {
		return rp, nil, err
	}
	return rp, &writer{inner: w, accessor: a, path: path}, nil
}

// writer defers the write event until Close succeeds, when the object is
// actually durable.
type writer struct {
	inner    access.Writer
	accessor *accessor
	path     string
}

func (w *writer) Write(ctx context.Context, b []byte) (int, error) {
	return w.inner.Write(ctx, b)
}

func (w *writer) Close(ctx context.Context) error {
	if err := w.inner.Close(ctx); err != nil {
		return err
	}
	w.accessor.emit(ctx, "write", w.path)
	return nil
}

func (w *writer) Abort(ctx context.Context) error {
	return w.inner.Abort(ctx)
}

func (a *accessor) Stat(ctx context.Context, path string, args access.OpStat) (access.RpStat, error) {
	return a.inner.Stat(ctx, path, args)
}

func (a *accessor) Delete(ctx context.Context, path string, args access.OpDelete) (access.RpDelete, error) {
	rp, err := a.inner.Delete(ctx, path, args)
	if err == nil {
		a.emit(ctx, "delete", path)
	}
	return rp, err
}

func (a *accessor) Copy(ctx context.Context, from, to string, args access.OpCopy) (access.RpCopy, error) {
	rp, err := a.inner.Copy(ctx, from, to, args)
	if err == nil {
		a.emit(ctx, "copy", to)
	}
	return rp, err
}

func (a *accessor) List(ctx context.Context, path string, args access.OpList) (access.RpList, access.Pager, error) {
	return a.inner.List(ctx, path, args)
}

func (a *accessor) Batch(ctx context.Context, args access.OpBatch) (access.RpBatch, error) {
	rp, err := a.inner.Batch(ctx, args)
	if err == nil {
		for _, result := range rp.Results {
			if result.Err == nil {
				a.emit(ctx, "delete", result.Path)
			}
		}
	}
	return rp, err
}

func (a *accessor) Presign(ctx context.Context, path string, args access.OpPresign) (access.RpPresign, error) {
	return a.inner.Presign(ctx, path, args)
}
