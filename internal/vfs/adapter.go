package vfs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
	"github.com/koustreak/bucketfs/internal/logger"
)

// deleteBatchSize caps the keys sent in one batch delete request.
const deleteBatchSize = 1000

// Adapter implements Filesystem against one bucket of a filestore.Client.
// It keeps no state between calls beyond its configuration and is safe for
// concurrent use whenever the client is.
type Adapter struct {
	client filestore.Client
	bucket string
	cfg    Config

	prefix     *Prefixer
	visibility *visibilityResolver
	lister     *lister
	signer     *signer

	log *logger.Logger
	now func() time.Time
}

// AdapterOption customizes NewAdapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter's logger. The default discards output.
func WithLogger(l *logger.Logger) AdapterOption {
	return func(a *Adapter) { a.log = l.Component("vfs") }
}

// WithClock replaces time.Now when resolving signed URL expirations.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter builds an Adapter for bucket. cfg is defaulted and validated.
func NewAdapter(client filestore.Client, bucket string, cfg Config, opts ...AdapterOption) (*Adapter, error) {
	if client == nil {
		return nil, errs.New(errs.ErrKindInvalidArgument, "client is required")
	}
	if bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidArgument, "bucket is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidArgument, "invalid adapter config", err)
	}

	a := &Adapter{
		client: client,
		bucket: bucket,
		cfg:    cfg,
		prefix: NewPrefixer(cfg.Root),
		log:    logger.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}

	a.visibility = &visibilityResolver{client: client, bucket: bucket}
	a.lister = &lister{
		client:   client,
		bucket:   bucket,
		prefix:   a.prefix,
		pageSize: cfg.PageSize,
		maxDepth: cfg.MaxListDepth,
	}
	a.signer = &signer{
		client:        client,
		bucket:        bucket,
		prefix:        a.prefix,
		defaultExpiry: cfg.LinkExpiry,
		now:           a.now,
	}
	return a, nil
}

// Prefixer exposes the adapter's path mapping.
func (a *Adapter) Prefixer() *Prefixer {
	return a.prefix
}

// --- reads ---

func (a *Adapter) Has(ctx context.Context, path string) (bool, error) {
	ok, err := a.client.Exists(ctx, a.bucket, a.prefix.ObjectKey(path))
	if err != nil {
		return false, backendErr(err, "check %s", path)
	}
	return ok, nil
}

func (a *Adapter) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := a.client.GetObject(ctx, a.bucket, a.prefix.ObjectKey(path))
	if err != nil {
		return nil, backendErr(err, "read %s", path)
	}
	return data, nil
}

// ReadStream reads the whole object, then serves it from memory.
func (a *Adapter) ReadStream(ctx context.Context, path string) (io.ReadCloser, error) {
	data, err := a.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ListContents lists directory, recursively when asked. A failure at any
// point, including on a later page or in a nested directory, is logged and
// reported as nil rather than as a truncated listing. A directory that is
// genuinely empty returns an empty, non-nil slice.
func (a *Adapter) ListContents(ctx context.Context, directory string, recursive bool) []Entry {
	entries, err := a.lister.list(ctx, directory, recursive)
	if err != nil {
		a.log.WarnWith("listing failed; returning no entries", err, map[string]any{
			"directory": directory,
			"recursive": recursive,
		})
		return nil
	}
	return entries
}

func (a *Adapter) GetMetadata(ctx context.Context, path string) (*Metadata, error) {
	meta, err := a.client.GetObjectMeta(ctx, a.bucket, a.prefix.ObjectKey(path))
	if err != nil {
		return nil, backendErr(err, "get metadata of %s", path)
	}
	return &Metadata{
		Type:      EntryFile,
		Path:      path,
		Size:      meta.Size,
		Mimetype:  meta.ContentType,
		Timestamp: meta.LastModified,
		ETag:      meta.ETag,
		Headers:   meta.Headers,
	}, nil
}

func (a *Adapter) GetSize(ctx context.Context, path string) (int64, error) {
	meta, err := a.GetMetadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return meta.Size, nil
}

func (a *Adapter) GetMimetype(ctx context.Context, path string) (string, error) {
	meta, err := a.GetMetadata(ctx, path)
	if err != nil {
		return "", err
	}
	return meta.Mimetype, nil
}

func (a *Adapter) GetTimestamp(ctx context.Context, path string) (time.Time, error) {
	meta, err := a.GetMetadata(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return meta.Timestamp, nil
}

// GetVisibility resolves the effective visibility, following bucket
// inheritance when the object has no ACL of its own.
func (a *Adapter) GetVisibility(ctx context.Context, path string) (Visibility, error) {
	v, err := a.visibility.resolve(ctx, a.prefix.ObjectKey(path))
	if err != nil {
		return "", backendErr(err, "get visibility of %s", path)
	}
	return v, nil
}

// --- writes ---

func (a *Adapter) SetVisibility(ctx context.Context, path string, v Visibility) error {
	if !v.valid() {
		return errs.Newf(errs.ErrKindInvalidArgument, "unknown visibility %q", v)
	}
	if err := a.client.PutObjectACL(ctx, a.bucket, a.prefix.ObjectKey(path), ACLFor(v)); err != nil {
		return backendErr(err, "set visibility of %s", path)
	}
	a.log.DebugWith("visibility set", map[string]any{"path": path, "visibility": v})
	return nil
}

func (a *Adapter) Write(ctx context.Context, path string, contents []byte, opts WriteOptions) (*Metadata, error) {
	put := opts.putOptions(contents, a.cfg.DefaultVisibility)
	if err := a.client.PutObject(ctx, a.bucket, a.prefix.ObjectKey(path), contents, put); err != nil {
		return nil, backendErr(err, "write %s", path)
	}
	a.log.DebugWith("object written", map[string]any{"path": path, "size": len(contents)})

	meta := &Metadata{
		Type:     EntryFile,
		Path:     path,
		Size:     int64(len(contents)),
		Mimetype: put.Headers[http.CanonicalHeaderKey(filestore.HeaderContentType)],
	}
	if put.ACL != "" {
		meta.Visibility = visibilityFromACL(put.ACL)
	}
	return meta, nil
}

// WriteStream buffers r fully, then writes it like Write.
func (a *Adapter) WriteStream(ctx context.Context, path string, r io.Reader, opts WriteOptions) (*Metadata, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidArgument, "read source stream for "+path, err)
	}
	return a.Write(ctx, path, contents, opts)
}

// Update overwrites path; object stores make no distinction from Write.
func (a *Adapter) Update(ctx context.Context, path string, contents []byte, opts WriteOptions) (*Metadata, error) {
	return a.Write(ctx, path, contents, opts)
}

func (a *Adapter) UpdateStream(ctx context.Context, path string, r io.Reader, opts WriteOptions) (*Metadata, error) {
	return a.WriteStream(ctx, path, r, opts)
}

// Rename copies from to to, then deletes from. It is not atomic: when the
// delete fails the error is a backend failure and both objects remain,
// leaving a duplicate at the destination.
func (a *Adapter) Rename(ctx context.Context, from, to string) error {
	if err := a.Copy(ctx, from, to); err != nil {
		return err
	}
	if err := a.client.DeleteObject(ctx, a.bucket, a.prefix.ObjectKey(from)); err != nil {
		a.log.WarnWith("rename left a duplicate", err, map[string]any{"from": from, "to": to})
		return errs.Wrap(errs.ErrKindBackendFailure,
			"rename "+from+" -> "+to+": copied, but source was not deleted; both objects now exist", err)
	}
	return nil
}

func (a *Adapter) Copy(ctx context.Context, from, to string) error {
	err := a.client.CopyObject(ctx, a.bucket, a.prefix.ObjectKey(from), a.bucket, a.prefix.ObjectKey(to))
	if err != nil {
		return backendErr(err, "copy %s -> %s", from, to)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := a.client.DeleteObject(ctx, a.bucket, a.prefix.ObjectKey(path)); err != nil {
		return backendErr(err, "delete %s", path)
	}
	a.log.DebugWith("object deleted", map[string]any{"path": path})
	return nil
}

// DeleteDir removes every file below directory, every nested directory
// marker and the directory's own marker. Unlike ListContents, a listing
// failure aborts the delete with an error.
func (a *Adapter) DeleteDir(ctx context.Context, directory string) error {
	if a.prefix.ObjectKey(directory) == a.prefix.Prefix() {
		return errs.New(errs.ErrKindInvalidArgument, "refusing to delete the root directory")
	}

	entries, err := a.lister.list(ctx, directory, true)
	if err != nil {
		return backendErr(err, "list %s for deletion", directory)
	}

	keys := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		if e.Type == EntryDir {
			keys = append(keys, a.prefix.DirKey(e.Path))
		} else {
			keys = append(keys, a.prefix.ObjectKey(e.Path))
		}
	}
	keys = append(keys, a.prefix.DirKey(directory))

	if err := a.deleteKeys(ctx, keys); err != nil {
		return backendErr(err, "delete directory %s", directory)
	}
	a.log.DebugWith("directory deleted", map[string]any{"directory": directory, "keys": len(keys)})
	return nil
}

func (a *Adapter) deleteKeys(ctx context.Context, keys []string) error {
	batch, ok := a.client.(filestore.BatchDeleter)
	if !ok {
		for _, k := range keys {
			if err := a.client.DeleteObject(ctx, a.bucket, k); err != nil {
				return err
			}
		}
		return nil
	}
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		if err := batch.DeleteObjects(ctx, a.bucket, keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// CreateDir writes the zero-byte marker object for directory.
func (a *Adapter) CreateDir(ctx context.Context, directory string, opts WriteOptions) error {
	key := a.prefix.DirKey(directory)
	if key == a.prefix.Prefix() {
		return errs.New(errs.ErrKindInvalidArgument, "the root directory always exists")
	}
	if err := a.client.PutObject(ctx, a.bucket, key, nil, opts.putOptions(nil, a.cfg.DefaultVisibility)); err != nil {
		return backendErr(err, "create directory %s", directory)
	}
	return nil
}

// --- links ---

// TemporaryURL returns a signed URL valid until expiration, or for the
// configured link expiry when expiration is zero.
func (a *Adapter) TemporaryURL(ctx context.Context, path string, expiration time.Time, opts URLOptions) (string, error) {
	u, err := a.signer.temporaryURL(ctx, path, expiration, opts)
	if err != nil {
		return "", backendErr(err, "sign url for %s", path)
	}
	return u, nil
}

// PublicURL returns the object URL with all signing parameters removed.
// It only grants access when the object is publicly readable.
func (a *Adapter) PublicURL(ctx context.Context, path string, opts URLOptions) (string, error) {
	u, err := a.signer.publicURL(ctx, path, opts)
	if err != nil {
		return "", backendErr(err, "public url for %s", path)
	}
	return u, nil
}

// compile-time check
var _ Filesystem = (*Adapter)(nil)
