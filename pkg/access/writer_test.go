package access

import (
	"bytes"
	"context"
	"testing"
)

type recordedChunk struct {
	off  int64
	size int
	last bool
}

type fakeChunkUpload struct {
	chunks  []recordedChunk
	data    bytes.Buffer
	aborted bool
}

func (f *fakeChunkUpload) UploadChunk(_ context.Context, off int64, b []byte, last bool) error {
	f.chunks = append(f.chunks, recordedChunk{off: off, size: len(b), last: last})
	f.data.Write(b)
	return nil
}

func (f *fakeChunkUpload) AbortUpload(context.Context) error {
	f.aborted = true
	return nil
}

func TestAlignedWriterChunking(t *testing.T) {
	ctx := context.Background()
	up := &fakeChunkUpload{}
	w, err := NewAlignedWriter(up, 4)
	if err != nil {
		t.Fatalf("NewAlignedWriter: %v", err)
	}

	payload := []byte("0123456789") // 10 bytes, alignment 4
	if _, err := w.Write(ctx, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !bytes.Equal(up.data.Bytes(), payload) {
		t.Errorf("uploaded %q, want %q", up.data.Bytes(), payload)
	}
	for i, c := range up.chunks {
		isLast := i == len(up.chunks)-1
		if c.last != isLast {
			t.Errorf("chunk %d: last=%v, want %v", i, c.last, isLast)
		}
		if !isLast && c.size%4 != 0 {
			t.Errorf("chunk %d has unaligned size %d", i, c.size)
		}
	}
}

func TestAlignedWriterExactMultiple(t *testing.T) {
	// When the payload ends on an alignment boundary, the final chunk must
	// still be flagged last rather than flushed as an interior chunk.
	ctx := context.Background()
	up := &fakeChunkUpload{}
	w, _ := NewAlignedWriter(up, 4)

	if _, err := w.Write(ctx, []byte("01234567")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	final := up.chunks[len(up.chunks)-1]
	if !final.last {
		t.Error("final chunk should carry last=true")
	}
	if final.size == 0 {
		t.Error("final chunk should carry the held-back bytes")
	}
}

func TestAlignedWriterEmpty(t *testing.T) {
	ctx := context.Background()
	up := &fakeChunkUpload{}
	w, _ := NewAlignedWriter(up, 4)

	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(up.chunks) != 1 || !up.chunks[0].last || up.chunks[0].size != 0 {
		t.Errorf("zero-byte session should commit one empty final chunk, got %+v", up.chunks)
	}
}

func TestAlignedWriterAbort(t *testing.T) {
	ctx := context.Background()
	up := &fakeChunkUpload{}
	w, _ := NewAlignedWriter(up, 4)
	w.Write(ctx, []byte("xy"))
	if err := w.Abort(ctx); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if !up.aborted {
		t.Error("abort should reach the upload session")
	}
	if _, err := w.Write(ctx, []byte("z")); err == nil {
		t.Error("write after abort should fail")
	}
}

type fakeOneShot struct {
	payload []byte
	calls   int
}

func (f *fakeOneShot) UploadAll(_ context.Context, b []byte) error {
	f.calls++
	f.payload = append([]byte(nil), b...)
	return nil
}

func TestOneShotWriter(t *testing.T) {
	ctx := context.Background()
	up := &fakeOneShot{}
	w := NewOneShotWriter(up)

	w.Write(ctx, []byte("hello "))
	w.Write(ctx, []byte("world"))
	if up.calls != 0 {
		t.Fatal("nothing should be uploaded before Close")
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if up.calls != 1 || string(up.payload) != "hello world" {
		t.Errorf("uploaded %q in %d calls", up.payload, up.calls)
	}
}

func TestOneShotWriterEmpty(t *testing.T) {
	ctx := context.Background()
	up := &fakeOneShot{}
	w := NewOneShotWriter(up)
	if err := w.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if up.calls != 1 || len(up.payload) != 0 {
		t.Error("closing an empty session should commit a zero-length object")
	}
}
