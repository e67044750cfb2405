package access

import "strings"

// Scheme identifies a backend kind. Its canonical form is lowercase; strings
// outside the well-known vocabulary are carried through verbatim so that
// externally registered backends keep working.
type Scheme string

const (
	SchemeAzblob  Scheme = "azblob"
	SchemeBolt    Scheme = "bolt"
	SchemeFs      Scheme = "fs"
	SchemeFtp     Scheme = "ftp"
	SchemeGcs     Scheme = "gcs"
	SchemeHTTP    Scheme = "http"
	SchemeMemory  Scheme = "memory"
	SchemeNats    Scheme = "nats"
	SchemeOss     Scheme = "oss"
	SchemeRedis   Scheme = "redis"
	SchemeS3      Scheme = "s3"
	SchemeSftp    Scheme = "sftp"
	SchemeSwift   Scheme = "swift"
	SchemeWebdav  Scheme = "webdav"
	SchemeWebhdfs Scheme = "webhdfs"
)

var knownSchemes = map[Scheme]bool{
	SchemeAzblob:  true,
	SchemeBolt:    true,
	SchemeFs:      true,
	SchemeFtp:     true,
	SchemeGcs:     true,
	SchemeHTTP:    true,
	SchemeMemory:  true,
	SchemeNats:    true,
	SchemeOss:     true,
	SchemeRedis:   true,
	SchemeS3:      true,
	SchemeSftp:    true,
	SchemeSwift:   true,
	SchemeWebdav:  true,
	SchemeWebhdfs: true,
}

// SchemeFromString maps a case-insensitive string onto a Scheme. Aliases
// collapse onto their canonical variant ("https" is "http"); anything not in
// the well-known set becomes a custom scheme, lowercased but otherwise
// preserved. Custom names are never interned process-wide: whoever registers
// a custom backend owns the name.
func SchemeFromString(s string) Scheme {
	lower := strings.ToLower(s)
	switch lower {
	case "http", "https":
		return SchemeHTTP
	case "ftp", "ftps":
		return SchemeFtp
	}
	return Scheme(lower)
}

func (s Scheme) String() string { return string(s) }

// IsKnown reports whether s is one of the built-in scheme variants.
func (s Scheme) IsKnown() bool { return knownSchemes[s] }
