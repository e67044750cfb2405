package access

import (
	"bytes"
	"context"
	"fmt"
)

// Writer is an upload session. Bytes accumulate across Write calls; nothing
// is guaranteed durable until Close returns nil. A Writer is single-owner:
// concurrent use of one session is not supported. Abandoning a session via
// Abort (or by dropping it) leaves the object state backend-defined.
type Writer interface {
	Write(ctx context.Context, b []byte) (int, error)
	Close(ctx context.Context) error
	Abort(ctx context.Context) error
}

// OneShotUpload commits an entire object in a single backend call. Backends
// without chunked uploads implement it and wrap themselves in OneShotWriter.
type OneShotUpload interface {
	UploadAll(ctx context.Context, b []byte) error
}

// OneShotWriter buffers every Write and hands the whole payload to its
// upload on Close. Closing with zero bytes written commits a valid empty
// object.
type OneShotWriter struct {
	upload OneShotUpload
	buf    bytes.Buffer
	done   bool
}

func NewOneShotWriter(upload OneShotUpload) *OneShotWriter {
	return &OneShotWriter{upload: upload}
}

func (w *OneShotWriter) Write(ctx context.Context, b []byte) (int, error) {
	if w.done {
		return 0, NewError(KindUnexpected, "write after close").WithOperation("write")
	}
	return w.buf.Write(b)
}

func (w *OneShotWriter) Close(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.upload.UploadAll(ctx, w.buf.Bytes())
}

func (w *OneShotWriter) Abort(ctx context.Context) error {
	w.done = true
	w.buf.Reset()
	return nil
}

// ChunkUpload is the backend side of an aligned upload session. UploadChunk
// sends one chunk beginning at off; last marks the chunk that completes the
// session. A last chunk may be empty when the whole object is empty.
type ChunkUpload interface {
	UploadChunk(ctx context.Context, off int64, b []byte, last bool) error
	AbortUpload(ctx context.Context) error
}

// AlignedWriter adapts a ChunkUpload to the Writer contract while honoring
// an alignment granularity: every flushed chunk except the final one is an
// exact multiple of align. It holds back a full buffer rather than flushing
// it, because the final chunk must be identifiable at flush time.
type AlignedWriter struct {
	upload ChunkUpload
	align  int64
	buf    bytes.Buffer
	off    int64
	done   bool
}

func NewAlignedWriter(upload ChunkUpload, align int64) (*AlignedWriter, error) {
	if align <= 0 {
		return nil, NewError(KindConfigInvalid, fmt.Sprintf("alignment must be positive, got %d", align)).
			WithOperation("write")
	}
	return &AlignedWriter{upload: upload, align: align}, nil
}

func (w *AlignedWriter) Write(ctx context.Context, b []byte) (int, error) {
	if w.done {
		return 0, NewError(KindUnexpected, "write after close").WithOperation("write")
	}
	w.buf.Write(b)
	// Flush aligned chunks, but keep at least one byte so the session always
	// ends with an explicit final chunk.
	for int64(w.buf.Len()) > w.align {
		n := (int64(w.buf.Len()-1) / w.align) * w.align
		chunk := w.buf.Next(int(n))
		if err := w.upload.UploadChunk(ctx, w.off, chunk, false); err != nil {
			w.done = true
			return 0, err
		}
		w.off += n
	}
	return len(b), nil
}

func (w *AlignedWriter) Close(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.upload.UploadChunk(ctx, w.off, w.buf.Bytes(), true)
}

func (w *AlignedWriter) Abort(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	w.buf.Reset()
	return w.upload.AbortUpload(ctx)
}
