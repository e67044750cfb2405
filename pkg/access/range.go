package access

import "fmt"

// BytesRange selects a byte window of an object. A nil Offset with a Size is
// a suffix range (the last Size bytes); a nil Size reads from Offset to the
// end; both nil is the full object.
type BytesRange struct {
	Offset *int64
	Size   *int64
}

// FullRange selects the whole object.
func FullRange() BytesRange { return BytesRange{} }

// NewRange selects size bytes starting at offset.
func NewRange(offset, size int64) BytesRange {
	return BytesRange{Offset: &offset, Size: &size}
}

// RangeFrom selects everything from offset to the end.
func RangeFrom(offset int64) BytesRange {
	return BytesRange{Offset: &offset}
}

// SuffixRange selects the trailing size bytes.
func SuffixRange(size int64) BytesRange {
	return BytesRange{Size: &size}
}

// IsFull reports whether the range selects the whole object.
func (r BytesRange) IsFull() bool { return r.Offset == nil && r.Size == nil }

// ToHeader renders the range as an RFC 7233 Range header value. Calling it
// on a full range is a caller bug; it returns "bytes=0-".
func (r BytesRange) ToHeader() string {
	switch {
	case r.Offset != nil && r.Size != nil:
		return fmt.Sprintf("bytes=%d-%d", *r.Offset, *r.Offset+*r.Size-1)
	case r.Offset != nil:
		return fmt.Sprintf("bytes=%d-", *r.Offset)
	case r.Size != nil:
		return fmt.Sprintf("bytes=-%d", *r.Size)
	default:
		return "bytes=0-"
	}
}

// Apply clamps the range against an object of length total and returns the
// resulting window. A range wholly outside the object yields (0, 0): callers
// must treat that as a successful empty read, never an error.
func (r BytesRange) Apply(total int64) (offset, length int64) {
	switch {
	case r.Offset != nil:
		if *r.Offset >= total {
			return 0, 0
		}
		offset = *r.Offset
		length = total - offset
		if r.Size != nil && *r.Size < length {
			length = *r.Size
		}
		return offset, length
	case r.Size != nil:
		length = *r.Size
		if length > total {
			length = total
		}
		return total - length, length
	default:
		return 0, total
	}
}
