package access

import "strings"

// NormalizeRoot canonicalizes a working-directory root: always absolute with
// a leading slash, never a trailing slash except for the root itself.
//
//	""        -> "/"
//	"abc/"    -> "/abc"
//	"/a//b/"  -> "/a/b"
func NormalizeRoot(root string) string {
	parts := make([]string, 0, 4)
	for _, seg := range strings.Split(root, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// BuildAbsPath resolves a caller path against a normalized root and returns
// the backend-absolute form without a leading slash, suitable as an object
// key. A trailing slash on path is preserved.
//
//	BuildAbsPath("/", "a/b")    -> "a/b"
//	BuildAbsPath("/x", "a/")    -> "x/a/"
//	BuildAbsPath("/x", "/")     -> "x/"
func BuildAbsPath(root, path string) string {
	prefix := RootKey(root)
	p := strings.TrimPrefix(path, "/")
	return prefix + p
}

// RootKey is the object-key prefix of a normalized root: empty for "/" and
// "<root>/" without the leading slash otherwise.
func RootKey(root string) string {
	if root == "/" || root == "" {
		return ""
	}
	return strings.TrimPrefix(root, "/") + "/"
}

// IsDirPath reports whether path names a directory: "/" or any path with a
// trailing separator. Hierarchical backends model these implicitly.
func IsDirPath(path string) bool {
	return path == "/" || strings.HasSuffix(path, "/")
}
