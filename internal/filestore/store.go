// Package filestore defines the unified interface for object storage backends.
//
// All providers (MinIO, S3, in-memory) implement the Client interface.
// Callers depend only on this package, never on a specific provider package;
// providers register themselves with Register and are built with Open.
//
// Usage:
//
//	import _ "github.com/koustreak/bucketfs/internal/filestore/minio"
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	cfg.Bucket = "assets"
//	client, err := filestore.Open(ctx, cfg)
//	if err != nil { ... }
//	defer client.Close()
package filestore

import (
	"context"
)

// Client is the primitive key-based surface of an object store.
// Every method takes the bucket explicitly; errors are *errs.Error.
type Client interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// Exists reports whether an object with exactly this key exists.
	Exists(ctx context.Context, bucket, key string) (bool, error)

	// GetObject returns the whole object payload.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	// PutObject stores data under key, replacing any existing object.
	PutObject(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error

	// CopyObject copies srcKey in srcBucket to dstKey in dstBucket.
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// DeleteObject removes a single object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// ListObjects returns one page of a delimiter-scoped listing.
	ListObjects(ctx context.Context, bucket string, req ListRequest) (*ListPage, error)

	// GetObjectMeta returns the object's metadata without its payload.
	GetObjectMeta(ctx context.Context, bucket, key string) (*ObjectMeta, error)

	// GetObjectACL returns the object's canned ACL token, ACLDefault when
	// the object inherits from the bucket.
	GetObjectACL(ctx context.Context, bucket, key string) (string, error)

	// GetBucketACL returns the bucket's canned ACL token.
	GetBucketACL(ctx context.Context, bucket string) (string, error)

	// PutObjectACL sets the object's canned ACL token.
	PutObjectACL(ctx context.Context, bucket, key, acl string) error

	// SignURL returns an absolute, time-limited URL for the object.
	SignURL(ctx context.Context, bucket string, req SignRequest) (string, error)
}

// BatchDeleter is optionally implemented by clients that can remove many
// keys in one request. Callers fall back to DeleteObject per key otherwise.
type BatchDeleter interface {
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}
