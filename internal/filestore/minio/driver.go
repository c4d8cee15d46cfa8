// Package minio provides a MinIO implementation of filestore.Client.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	cfg.Bucket = "assets"
//	client, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

// amzACLHeader is passed through UserMetadata verbatim by the SDK.
const amzACLHeader = "x-amz-acl"

func init() {
	filestore.Register(filestore.ProviderMinIO, func(ctx context.Context, cfg *filestore.Config) (filestore.Client, error) {
		return New(ctx, cfg)
	})
}

// Driver is a MinIO implementation of filestore.Client.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	core   *miniogo.Core
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindBackendFailure, "failed to create minio client", err)
	}

	d := &Driver{client: client, core: &miniogo.Core{Client: client}}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- filestore.Client implementation ---

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.ListBuckets(ctx)
	if err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, mapError(err, "failed to check object existence")
	}
	return true, nil
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapError(err, "failed to read object body")
	}
	return data, nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, data []byte, opts filestore.PutOptions) error {
	putOpts := miniogo.PutObjectOptions{
		UserMetadata:   map[string]string{},
		SendContentMd5: !opts.DisableChecksum,
	}
	if opts.DisableChecksum {
		putOpts.DisableContentSha256 = true
	}

	for k, v := range opts.Headers {
		switch http.CanonicalHeaderKey(k) {
		case "Content-Type":
			putOpts.ContentType = v
		case "Content-Encoding":
			putOpts.ContentEncoding = v
		case "Content-Disposition":
			putOpts.ContentDisposition = v
		case "Content-Language":
			putOpts.ContentLanguage = v
		case "Cache-Control":
			putOpts.CacheControl = v
		case "Expires":
			if t, err := http.ParseTime(v); err == nil {
				putOpts.Expires = t
			}
		case "Content-Length", "Content-Md5":
			// the SDK derives both from the body
		default:
			putOpts.UserMetadata[k] = v
		}
	}
	if opts.ACL != "" {
		putOpts.UserMetadata[amzACLHeader] = opts.ACL
	}

	_, err := d.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), putOpts)
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

func (d *Driver) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := d.client.CopyObject(ctx,
		miniogo.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
		miniogo.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
	)
	if err != nil {
		return mapError(err, "failed to copy object")
	}
	return nil
}

func (d *Driver) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := d.client.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "failed to delete object")
	}
	return nil
}

// DeleteObjects removes keys with the multi-object delete API. The first
// per-key failure is returned after the whole batch has been processed.
func (d *Driver) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	objects := make(chan miniogo.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- miniogo.ObjectInfo{Key: k}
	}
	close(objects)

	var first error
	for rerr := range d.client.RemoveObjects(ctx, bucket, objects, miniogo.RemoveObjectsOptions{}) {
		if first == nil {
			first = mapError(rerr.Err, "failed to delete "+rerr.ObjectName)
		}
	}
	return first
}

// ListObjects issues one V1 ListObjects request so the continuation marker
// stays under the caller's control.
func (d *Driver) ListObjects(ctx context.Context, bucket string, req filestore.ListRequest) (*filestore.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	res, err := d.core.ListObjects(bucket, req.Prefix, req.Marker, req.Delimiter, req.MaxKeys)
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	page := &filestore.ListPage{}
	for _, p := range res.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, p.Prefix)
	}
	for _, obj := range res.Contents {
		page.Objects = append(page.Objects, filestore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	if res.IsTruncated {
		page.NextMarker = res.NextMarker
		if page.NextMarker == "" {
			page.NextMarker = lastEntry(page)
		}
	}
	return page, nil
}

func (d *Driver) GetObjectMeta(ctx context.Context, bucket, key string) (*filestore.ObjectMeta, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	headers := make(map[string]string, len(stat.Metadata))
	for k, v := range stat.Metadata {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return &filestore.ObjectMeta{
		ObjectInfo: filestore.ObjectInfo{
			Key:          stat.Key,
			Size:         stat.Size,
			ContentType:  stat.ContentType,
			ETag:         stat.ETag,
			LastModified: stat.LastModified,
		},
		Headers: headers,
	}, nil
}

// GetObjectACL returns the canned ACL the SDK derives from the object's grants.
func (d *Driver) GetObjectACL(ctx context.Context, bucket, key string) (string, error) {
	info, err := d.client.GetObjectACL(ctx, bucket, key)
	if err != nil {
		return "", mapError(err, "failed to get object acl")
	}
	if acl := info.Metadata.Get("X-Amz-Acl"); acl != "" {
		return acl, nil
	}
	return filestore.ACLDefault, nil
}

// GetBucketACL derives a canned ACL from the bucket policy; MinIO has no
// bucket ACLs of its own.
func (d *Driver) GetBucketACL(ctx context.Context, bucket string) (string, error) {
	policy, err := d.client.GetBucketPolicy(ctx, bucket)
	if err != nil {
		return "", mapError(err, "failed to get bucket policy")
	}
	if policyAllowsPublicRead(policy) {
		return filestore.ACLPublicRead, nil
	}
	return filestore.ACLPrivate, nil
}

// PutObjectACL is not available on MinIO.
func (d *Driver) PutObjectACL(_ context.Context, _, _, _ string) error {
	return errs.New(errs.ErrKindUnsupported, "minio does not support object ACLs; use a bucket policy")
}

func (d *Driver) SignURL(ctx context.Context, bucket string, req filestore.SignRequest) (string, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	params := url.Values{}
	for k, v := range req.Query {
		params.Set(k, v)
	}

	u, err := d.client.Presign(ctx, strings.ToUpper(method), bucket, req.Key, req.Expiry, params)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

// --- internal helpers ---

func lastEntry(page *filestore.ListPage) string {
	var last string
	if n := len(page.Objects); n > 0 {
		last = page.Objects[n-1].Key
	}
	if n := len(page.Prefixes); n > 0 && page.Prefixes[n-1] > last {
		last = page.Prefixes[n-1]
	}
	return last
}

// compile-time checks
var (
	_ filestore.Client       = (*Driver)(nil)
	_ filestore.BatchDeleter = (*Driver)(nil)
)
