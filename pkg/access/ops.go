package access

import (
	"net/http"
	"time"
)

// The Op family bundles per-call parameters; the Rp family bundles per-call
// results. Both are plain values: built fresh per call, never mutated after
// handoff, owned by the receiving side.

// OpCreateDir has no parameters today; it exists so the signature can grow
// without breaking backends.
type OpCreateDir struct{}

type RpCreateDir struct{}

// OpRead selects what to read and under which conditions.
type OpRead struct {
	Range       BytesRange
	IfMatch     string
	IfNoneMatch string
}

// RpRead reports the resolved content length of the returned stream when the
// backend knows it; nil means unknown.
type RpRead struct {
	Size *int64
}

// OpWrite carries upload options. PredefinedACL and StorageClass are
// backend-agnostic hints a backend may ignore.
type OpWrite struct {
	ContentType   string
	PredefinedACL string
	StorageClass  string
}

type RpWrite struct{}

// OpStat carries conditional-match tokens for metadata reads.
type OpStat struct {
	IfMatch     string
	IfNoneMatch string
}

type RpStat struct {
	Meta Metadata
}

type OpDelete struct{}

type RpDelete struct{}

type OpCopy struct{}

type RpCopy struct{}

// OpList shapes a listing. Limit bounds the page size, not the total;
// StartAfter excludes every entry lexicographically <= it, across pages.
type OpList struct {
	Recursive  bool
	Limit      int
	StartAfter string
}

type RpList struct{}

// BatchKind names the sub-operation type inside a batch.
type BatchKind string

const BatchDelete BatchKind = "delete"

// BatchOperation is one (path, operation) pair of a batch call.
type BatchOperation struct {
	Kind BatchKind
	Path string
}

// OpBatch carries an ordered set of sub-operations executed in one wire call.
type OpBatch struct {
	Operations []BatchOperation
}

// BatchResult is the outcome for one input operation, at the same index as
// its input. Err nil means success; per-item delete of a missing key is
// success, matching the single-delete contract.
type BatchResult struct {
	Path string
	Err  error
}

/// RpBatch preserves input order: Results[i] corresponds to
// OpBatch.Operations[i].
type RpBatch struct {
	Results []BatchResult
}

// PresignKind names which operation a presigned request will perform.
type PresignKind int

const (
	PresignStat PresignKind = iota
	PresignRead
	PresignWrite
)

func (k PresignKind) String() string {
	switch k {
	case PresignRead:
		return "read"
	case PresignWrite:
		return "write"
	default:
		return "stat"
	}
}

// OpPresign describes the request to sign. Only the field matching Kind is
// consulted.
type OpPresign struct {
	Kind   PresignKind
	Expire time.Duration
	Stat   OpStat
	Read   OpRead
	Write  OpWrite
}

// PresignedRequest is a signed, time-bounded request descriptor. The access
// layer never transmits it; the caller does.
type PresignedRequest struct {
	Method string
	URI    string
	Header http.Header
}

type RpPresign struct {
	Request PresignedRequest
}
