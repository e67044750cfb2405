package access

import "time"

// EntryKind distinguishes files from directories.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
)

func (k EntryKind) String() string {
	if k == KindDir {
		return "DIR"
	}
	return "FILE"
}

// Metadata describes one stored object or directory. Kind is always set;
// every other field is populated only when the backend actually reported it,
// with the zero value meaning "not reported". Absence of a field is not an
// error.
type Metadata struct {
	Kind          EntryKind
	ContentLength int64
	ContentType   string
	ETag          string
	ContentMD5    string
	LastModified  time.Time
}

// NewMetadata returns Metadata of the given kind with nothing else reported.
func NewMetadata(kind EntryKind) Metadata {
	return Metadata{Kind: kind}
}

// IsDir reports whether the metadata describes a directory.
func (m Metadata) IsDir() bool { return m.Kind == KindDir }

// Entry is one listing result: a path relative to the backend root plus the
// metadata the listing reported for it. Directory paths end with "/".
type Entry struct {
	Path string
	Meta Metadata
}
