package filestore

import (
	"time"
)

// Canned ACL tokens understood by every driver.
const (
	ACLDefault         = "default" // inherit from the bucket
	ACLPrivate         = "private"
	ACLPublicRead      = "public-read"
	ACLPublicReadWrite = "public-read-write"
)

// Well-known header names carried in PutOptions.Headers and ObjectMeta.
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderContentMD5    = "Content-MD5"
	HeaderLastModified  = "Last-Modified"
	HeaderETag          = "ETag"
)

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Key is the full object path within the bucket (e.g. "images/photo.jpg").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type (e.g. "image/jpeg").
	ContentType string

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// ObjectMeta is the result of a metadata (HEAD) request.
type ObjectMeta struct {
	ObjectInfo

	// Headers holds every response header the backend returned, keyed by
	// canonical header name.
	Headers map[string]string
}

// ListRequest is one page request of a delimiter-scoped listing.
type ListRequest struct {
	// Prefix restricts results to keys starting with this string.
	Prefix string

	// Delimiter groups keys sharing the same next path segment into a
	// single common prefix. Usually "/".
	Delimiter string

	// Marker is the continuation marker returned by the previous page.
	// Pass "" to start from the beginning.
	Marker string

	// MaxKeys caps objects + prefixes in the page. 0 means the backend default.
	MaxKeys int
}

// ListPage is one page of a delimiter-scoped listing.
type ListPage struct {
	// NextMarker resumes the listing. Empty means the listing is complete.
	NextMarker string

	// Prefixes are the common prefixes (virtual directories), each ending
	// with the delimiter.
	Prefixes []string

	// Objects are the objects directly under the requested prefix.
	Objects []ObjectInfo
}

// PutOptions controls how PutObject stores an object.
type PutOptions struct {
	// Headers are request headers such as Content-Type, Content-MD5,
	// Content-Length, Cache-Control or backend metadata headers.
	Headers map[string]string

	// ACL is a canned ACL token. Empty sends no ACL header, so the
	// object inherits the bucket ACL.
	ACL string

	// DisableChecksum turns off the client-side checksum the driver would
	// otherwise compute, used when the caller supplies Content-MD5.
	DisableChecksum bool
}

// SignRequest describes a pre-signed URL.
type SignRequest struct {
	Key    string
	Expiry time.Duration
	// Method is the HTTP method the URL authorizes. Empty means GET.
	Method string
	// Query holds extra query parameters to sign into the URL
	// (e.g. response-content-disposition).
	Query map[string]string
}
