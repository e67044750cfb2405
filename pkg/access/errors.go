package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a storage failure. Every error crossing the Accessor
// boundary carries exactly one Kind; backends translate their raw status
// codes and payloads into it before returning.
type Kind int

const (
	// KindUnexpected covers everything not otherwise classified, including
	// malformed success payloads.
	KindUnexpected Kind = iota
	// KindConfigInvalid means the backend configuration is wrong, detected
	// at build time.
	KindConfigInvalid
	// KindUnsupported means the call violates the backend's advertised
	// capability or limits.
	KindUnsupported
	// KindNotFound means a required object does not exist.
	KindNotFound
	// KindAlreadyExists means a conflicting object exists under exclusive
	// create semantics.
	KindAlreadyExists
	// KindConditionNotMatch means a conditional-match token (etag) did not
	// match the stored object.
	KindConditionNotMatch
	// KindPermissionDenied means the backend rejected the caller's identity
	// or authorization.
	KindPermissionDenied
	// KindRateLimited means the backend is throttling; always retryable.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindUnsupported:
		return "Unsupported"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindConditionNotMatch:
		return "ConditionNotMatch"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindRateLimited:
		return "RateLimited"
	default:
		return "Unexpected"
	}
}

// Error is the single failure type the access layer surfaces. Backends must
// construct it through NewError and the With* helpers so that callers always
// see the operation name and enough context to diagnose without logs.
type Error struct {
	Kind      Kind
	Message   string
	Op        string
	Context   map[string]string
	Retryable bool
	Err       error // wrapped lower-level cause, may be nil
}

// NewError builds an Error of the given kind. RateLimited errors are
// retryable from the start.
func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: kind == KindRateLimited,
	}
}

// WithOperation records the operation the error originated from.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithContext attaches one diagnostic key-value pair, such as the offending
// path or an operation count.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause wraps the lower-level error that produced this one.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// MarkRetryable flags the failure as transient.
func (e *Error) MarkRetryable() *Error {
	e.Retryable = true
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" at ")
		b.WriteString(e.Op)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, e.Context[k]))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(pairs, ", "))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind returns the Kind carried by err, or KindUnexpected when err is
// not an access Error.
func ErrorKind(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// IsNotFound reports whether err is a NotFound access error.
func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindNotFound
}

// IsUnsupported reports whether err is an Unsupported access error.
func IsUnsupported(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == KindUnsupported
}

// IsRetryable reports whether err is flagged as transient. Retry policy is a
// caller concern; the access layer only carries the flag.
func IsRetryable(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Retryable
}
