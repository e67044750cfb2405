package access

// Capability declares which operations and limits one backend instance
// honors. The zero value supports nothing, so capability flags added later
// default to unsupported for existing backends. Accessors must never accept
// a call their own Capability rules out; callers may consult it up front to
// avoid doomed requests.
type Capability struct {
	Stat                bool
	StatWithIfMatch     bool
	StatWithIfNoneMatch bool

	Read                bool
	ReadWithRange       bool
	ReadWithIfMatch     bool
	ReadWithIfNoneMatch bool

	Write                bool
	WriteCanEmpty        bool
	WriteCanMulti        bool
	WriteWithContentType bool
	// WriteMultiAlignSize is the required granularity for chunked uploads:
	// every flushed chunk except the last must be a multiple of it. Zero
	// means no alignment constraint.
	WriteMultiAlignSize int64

	CreateDir bool
	Delete    bool
	Copy      bool

	List              bool
	ListWithLimit     bool
	ListWithStartAfter bool
	ListWithRecursive bool

	Batch bool
	// BatchMaxOperations caps the number of sub-operations one batch call
	// may carry. Zero means no declared limit.
	BatchMaxOperations int

	Presign      bool
	PresignStat  bool
	PresignRead  bool
	PresignWrite bool
}

// AccessorInfo is the static descriptor of one backend instance: its scheme,
// normalized root, display name and capability set. It is created once at
// build time and read-only afterwards.
type AccessorInfo struct {
	scheme     Scheme
	root       string
	name       string
	capability Capability
}

// NewAccessorInfo builds the immutable descriptor for a backend instance.
// root must already be normalized (see NormalizeRoot).
func NewAccessorInfo(scheme Scheme, root, name string, cap Capability) *AccessorInfo {
	return &AccessorInfo{scheme: scheme, root: root, name: name, capability: cap}
}

func (i *AccessorInfo) Scheme() Scheme          { return i.scheme }
func (i *AccessorInfo) Root() string            { return i.root }
func (i *AccessorInfo) Name() string            { return i.name }
func (i *AccessorInfo) Capability() Capability  { return i.capability }
