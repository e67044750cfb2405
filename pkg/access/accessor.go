// Package access defines the polymorphic contract every storage backend
// implements: the Accessor interface, its operation and response bundles,
// the capability model, the pager and writer session protocols, and the
// closed error taxonomy all backend failures are normalized into.
//
// Callers write backend-agnostic code against these types; backends plug in
// by implementing Accessor and advertising what they support through
// Capability. Behavioral diversity between backends (pagination cursors,
// range-read edge cases, batch limits, upload chunking) stays behind this
// surface:
//
//   - delete of a missing object is success, for every backend
//   - stat of the root path always returns DIR metadata
//   - a read range wholly past the object's end is a successful empty result
//   - batch results preserve input order
//
// The package performs no retries, rate limiting or caching; decorators
// layered on top (see pkg/layers) own those concerns.
package access

import (
	"context"
	"io"
)

// Accessor is the contract between the unified surface and one concrete
// backend. Implementations must be safe for concurrent use; the Pager and
// Writer sessions they hand out are single-owner.
//
// Every error returned must be an *Error produced by the backend's
// normalization funnel; raw transport or SDK errors must not cross this
// boundary.
type Accessor interface {
	// Info returns the static descriptor of this instance.
	Info() *AccessorInfo

	// CreateDir is idempotent: creating an existing directory succeeds.
	CreateDir(ctx context.Context, path string, args OpCreateDir) (RpCreateDir, error)

	// Read returns a byte stream and the resolved length when known. A range
	// wholly outside the object's bounds yields a successful empty stream.
	Read(ctx context.Context, path string, args OpRead) (RpRead, io.ReadCloser, error)

	// Write opens an upload session; nothing is committed until the returned
	// Writer is closed. Zero-byte sessions must produce a valid empty object
	// when WriteCanEmpty is advertised.
	Write(ctx context.Context, path string, args OpWrite) (RpWrite, Writer, error)

	// Stat returns metadata. Statting "/" always reports DIR; statting a
	// missing path that ends in "/" reports an implicit empty DIR.
	Stat(ctx context.Context, path string, args OpStat) (RpStat, error)

	// Delete is idempotent: deleting a missing object succeeds.
	Delete(ctx context.Context, path string, args OpDelete) (RpDelete, error)

	// Copy is atomic from the caller's perspective: the destination either
	// reflects the full source content or the call fails.
	Copy(ctx context.Context, from, to string, args OpCopy) (RpCopy, error)

	// List returns a lazy pager over the entries under path.
	List(ctx context.Context, path string, args OpList) (RpList, Pager, error)

	// Batch executes the sub-operations in one wire call and reports one
	// outcome per input, in input order.
	Batch(ctx context.Context, args OpBatch) (RpBatch, error)

	// Presign produces a signed request descriptor without any network I/O.
	Presign(ctx context.Context, path string, args OpPresign) (RpPresign, error)
}
