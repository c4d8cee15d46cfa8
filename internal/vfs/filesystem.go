// Package vfs emulates a hierarchical filesystem on top of a flat object
// store.
//
// Virtual paths are slash-separated, carry no leading slash, and "" names the
// root. Directories exist either implicitly, as common prefixes of object
// keys, or explicitly, as zero-byte marker objects whose key ends in "/".
//
// Usage:
//
//	client, _ := filestore.Open(ctx, storageCfg)
//	fs, err := vfs.NewAdapter(client, "assets", vfs.Config{Root: "tenant-a"})
//	if err != nil { ... }
//
//	_, err = fs.Write(ctx, "docs/readme.txt", []byte("hi"), vfs.WriteOptions{
//	    Visibility: vfs.VisibilityPublic,
//	})
//	entries := fs.ListContents(ctx, "docs", true)
package vfs

import (
	"context"
	"io"
	"time"
)

// EntryType tags a listing entry or metadata result.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// Entry is one item of a directory listing. Timestamp and Size are only set
// for files.
type Entry struct {
	Type      EntryType `json:"type"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Size      int64     `json:"size,omitempty"`
}

// Metadata describes a single file.
type Metadata struct {
	Type       EntryType         `json:"type"`
	Path       string            `json:"path"`
	Size       int64             `json:"size"`
	Mimetype   string            `json:"mimetype,omitempty"`
	Timestamp  time.Time         `json:"timestamp,omitzero"`
	ETag       string            `json:"etag,omitempty"`
	Visibility Visibility        `json:"visibility,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// URLOptions tune signed URL generation.
type URLOptions struct {
	// Method is the HTTP method the URL authorizes. Empty means GET.
	Method string
	// Query holds extra parameters signed into the URL, such as
	// response-content-disposition.
	Query map[string]string
}

// Filesystem is the hierarchical storage contract.
type Filesystem interface {
	Has(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)

	// ListContents never returns an error: a failed listing yields nil,
	// while an empty directory yields an empty non-nil slice.
	ListContents(ctx context.Context, directory string, recursive bool) []Entry

	GetMetadata(ctx context.Context, path string) (*Metadata, error)
	GetSize(ctx context.Context, path string) (int64, error)
	GetMimetype(ctx context.Context, path string) (string, error)
	GetTimestamp(ctx context.Context, path string) (time.Time, error)
	GetVisibility(ctx context.Context, path string) (Visibility, error)
	SetVisibility(ctx context.Context, path string, v Visibility) error

	Write(ctx context.Context, path string, contents []byte, opts WriteOptions) (*Metadata, error)
	WriteStream(ctx context.Context, path string, r io.Reader, opts WriteOptions) (*Metadata, error)
	Update(ctx context.Context, path string, contents []byte, opts WriteOptions) (*Metadata, error)
	UpdateStream(ctx context.Context, path string, r io.Reader, opts WriteOptions) (*Metadata, error)

	Rename(ctx context.Context, from, to string) error
	Copy(ctx context.Context, from, to string) error
	Delete(ctx context.Context, path string) error
	DeleteDir(ctx context.Context, directory string) error
	CreateDir(ctx context.Context, directory string, opts WriteOptions) error

	TemporaryURL(ctx context.Context, path string, expiration time.Time, opts URLOptions) (string, error)
	PublicURL(ctx context.Context, path string, opts URLOptions) (string, error)
}
