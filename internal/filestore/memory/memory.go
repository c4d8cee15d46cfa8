// Package memory provides an in-process implementation of filestore.Client.
//
// It follows the listing, ACL and URL-signing semantics of a real object
// store closely enough to stand in for one in tests and local development:
// V1 marker pagination with delimiter grouping, canned ACLs where objects
// inherit the bucket ACL through "default", and HMAC-signed URLs carrying
// OSSAccessKeyId / Expires / Signature query parameters.
package memory

import (
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

const defaultMaxKeys = 1000

func init() {
	filestore.Register(filestore.ProviderMemory, func(_ context.Context, cfg *filestore.Config) (filestore.Client, error) {
		opts := []Option{WithCredentials(cfg.AccessKey, cfg.SecretKey)}
		if cfg.Endpoint != "" {
			opts = append(opts, WithEndpoint(cfg.Endpoint, cfg.UseSSL))
		}
		d := New(opts...)
		d.CreateBucket(cfg.Bucket, filestore.ACLPrivate)
		return d, nil
	})
}

type object struct {
	data         []byte
	headers      map[string]string
	contentType  string
	etag         string
	acl          string
	lastModified time.Time
}

type bucket struct {
	acl     string
	objects map[string]*object
}

// Driver is an in-memory object store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	endpoint  string
	secure    bool
	accessKey string
	secretKey string
	now       func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithEndpoint sets the host used in signed URLs.
func WithEndpoint(endpoint string, secure bool) Option {
	return func(d *Driver) {
		d.endpoint = endpoint
		d.secure = secure
	}
}

// WithCredentials sets the key pair used to sign URLs.
func WithCredentials(accessKey, secretKey string) Option {
	return func(d *Driver) {
		d.accessKey = accessKey
		d.secretKey = secretKey
	}
}

// WithClock replaces time.Now for timestamps and URL expiry.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// New returns an empty Driver. Buckets must be created with CreateBucket.
func New(opts ...Option) *Driver {
	d := &Driver{
		buckets:   make(map[string]*bucket),
		endpoint:  "oss.local",
		accessKey: "memory",
		secretKey: "memory-secret",
		now:       time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// CreateBucket creates bucket with the given canned ACL. Creating an
// existing bucket only updates its ACL.
func (d *Driver) CreateBucket(name, acl string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buckets[name]; ok {
		b.acl = acl
		return
	}
	d.buckets[name] = &bucket{acl: acl, objects: make(map[string]*object)}
}

// Keys returns every key in bucket in lexicographic order.
func (d *Driver) Keys(bucketName string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buckets[bucketName]
	if !ok {
		return nil
	}
	return sortedKeys(b.objects)
}

// --- filestore.Client implementation ---

func (d *Driver) Ping(_ context.Context) error { return nil }

func (d *Driver) Close() error { return nil }

func (d *Driver) Exists(_ context.Context, bucketName, key string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, err := d.bucket(bucketName)
	if err != nil {
		return false, err
	}
	_, ok := b.objects[key]
	return ok, nil
}

func (d *Driver) GetObject(_ context.Context, bucketName, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	obj, err := d.object(bucketName, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

func (d *Driver) PutObject(_ context.Context, bucketName, key string, data []byte, opts filestore.PutOptions) error {
	if key == "" {
		return errs.WrapCode(errs.ErrKindBackendFailure, "InvalidObjectName", "object key must not be empty", nil)
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	if declared, ok := headers[http.CanonicalHeaderKey(filestore.HeaderContentLength)]; ok {
		n, err := strconv.ParseInt(declared, 10, 64)
		if err != nil || n != int64(len(data)) {
			return errs.WrapCode(errs.ErrKindBackendFailure, "IncompleteBody",
				fmt.Sprintf("declared length %s does not match body length %d", declared, len(data)), nil)
		}
	}

	sum := md5.Sum(data)
	if want, ok := headers[http.CanonicalHeaderKey(filestore.HeaderContentMD5)]; ok {
		if want != base64.StdEncoding.EncodeToString(sum[:]) {
			return errs.WrapCode(errs.ErrKindBackendFailure, "InvalidDigest", "Content-MD5 does not match body", nil)
		}
	}

	contentType := headers[http.CanonicalHeaderKey(filestore.HeaderContentType)]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	acl := opts.ACL
	if acl == "" {
		acl = filestore.ACLDefault
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.bucket(bucketName)
	if err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	b.objects[key] = &object{
		data:         stored,
		headers:      headers,
		contentType:  contentType,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		acl:          acl,
		lastModified: d.now().UTC().Truncate(time.Second),
	}
	return nil
}

func (d *Driver) CopyObject(_ context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	src, err := d.object(srcBucket, srcKey)
	if err != nil {
		return err
	}
	dst, err := d.bucket(dstBucket)
	if err != nil {
		return err
	}
	cp := *src
	cp.data = append([]byte(nil), src.data...)
	cp.lastModified = d.now().UTC().Truncate(time.Second)
	// a copy starts out inheriting the destination bucket ACL
	cp.acl = filestore.ACLDefault
	dst.objects[dstKey] = &cp
	return nil
}

func (d *Driver) DeleteObject(_ context.Context, bucketName, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.bucket(bucketName)
	if err != nil {
		return err
	}
	delete(b.objects, key)
	return nil
}

// DeleteObjects removes every key in one call.
func (d *Driver) DeleteObjects(_ context.Context, bucketName string, keys []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.bucket(bucketName)
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(b.objects, k)
	}
	return nil
}

func (d *Driver) ListObjects(_ context.Context, bucketName string, req filestore.ListRequest) (*filestore.ListPage, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, err := d.bucket(bucketName)
	if err != nil {
		return nil, err
	}

	maxKeys := req.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	page := &filestore.ListPage{}
	var (
		count      int
		last       string
		lastPrefix string
	)
	for _, key := range sortedKeys(b.objects) {
		if key <= req.Marker || !strings.HasPrefix(key, req.Prefix) {
			continue
		}

		entry, isPrefix := key, false
		if req.Delimiter != "" {
			rest := key[len(req.Prefix):]
			if i := strings.Index(rest, req.Delimiter); i >= 0 {
				entry, isPrefix = req.Prefix+rest[:i+len(req.Delimiter)], true
			}
		}
		if isPrefix && (entry == lastPrefix || entry <= req.Marker) {
			continue
		}

		if count == maxKeys {
			page.NextMarker = last
			return page, nil
		}

		if isPrefix {
			page.Prefixes = append(page.Prefixes, entry)
			lastPrefix = entry
		} else {
			obj := b.objects[key]
			page.Objects = append(page.Objects, filestore.ObjectInfo{
				Key:          key,
				Size:         int64(len(obj.data)),
				ContentType:  obj.contentType,
				ETag:         obj.etag,
				LastModified: obj.lastModified,
			})
		}
		last = entry
		count++
	}
	return page, nil
}

func (d *Driver) GetObjectMeta(_ context.Context, bucketName, key string) (*filestore.ObjectMeta, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	obj, err := d.object(bucketName, key)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(obj.headers)+4)
	for k, v := range obj.headers {
		headers[k] = v
	}
	headers[filestore.HeaderContentType] = obj.contentType
	headers[filestore.HeaderContentLength] = strconv.Itoa(len(obj.data))
	headers[filestore.HeaderLastModified] = obj.lastModified.Format(http.TimeFormat)
	headers[filestore.HeaderETag] = obj.etag

	return &filestore.ObjectMeta{
		ObjectInfo: filestore.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			ContentType:  obj.contentType,
			ETag:         obj.etag,
			LastModified: obj.lastModified,
		},
		Headers: headers,
	}, nil
}

func (d *Driver) GetObjectACL(_ context.Context, bucketName, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	obj, err := d.object(bucketName, key)
	if err != nil {
		return "", err
	}
	return obj.acl, nil
}

func (d *Driver) GetBucketACL(_ context.Context, bucketName string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, err := d.bucket(bucketName)
	if err != nil {
		return "", err
	}
	return b.acl, nil
}

func (d *Driver) PutObjectACL(_ context.Context, bucketName, key, acl string) error {
	switch acl {
	case filestore.ACLDefault, filestore.ACLPrivate, filestore.ACLPublicRead, filestore.ACLPublicReadWrite:
	default:
		return errs.WrapCode(errs.ErrKindBackendFailure, "InvalidArgument", fmt.Sprintf("unknown canned ACL %q", acl), nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, err := d.object(bucketName, key)
	if err != nil {
		return err
	}
	obj.acl = acl
	return nil
}

// SignURL returns an OSS-style signed URL:
// scheme://bucket.endpoint/key?Expires=..&OSSAccessKeyId=..&Signature=..
func (d *Driver) SignURL(_ context.Context, bucketName string, req filestore.SignRequest) (string, error) {
	d.mu.RLock()
	_, err := d.bucket(bucketName)
	d.mu.RUnlock()
	if err != nil {
		return "", err
	}
	if req.Expiry <= 0 {
		return "", errs.WrapCode(errs.ErrKindBackendFailure, "InvalidArgument", "expiry must be positive", nil)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	secs := int64((req.Expiry + time.Second - 1) / time.Second)
	expires := strconv.FormatInt(d.now().Unix()+secs, 10)

	mac := hmac.New(sha1.New, []byte(d.secretKey))
	fmt.Fprintf(mac, "%s\n\n\n%s\n/%s/%s", method, expires, bucketName, req.Key)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	q := url.Values{}
	for k, v := range req.Query {
		q.Set(k, v)
	}
	q.Set("OSSAccessKeyId", d.accessKey)
	q.Set("Expires", expires)
	q.Set("Signature", signature)

	scheme := "http"
	if d.secure {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     bucketName + "." + d.endpoint,
		Path:     "/" + req.Key,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// --- internal helpers; callers hold d.mu ---

func (d *Driver) bucket(name string) (*bucket, error) {
	b, ok := d.buckets[name]
	if !ok {
		return nil, errs.WrapCode(errs.ErrKindBackendFailure, "NoSuchBucket",
			fmt.Sprintf("bucket %q does not exist", name), nil)
	}
	return b, nil
}

func (d *Driver) object(bucketName, key string) (*object, error) {
	b, err := d.bucket(bucketName)
	if err != nil {
		return nil, err
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, errs.WrapCode(errs.ErrKindBackendFailure, errs.CodeNoSuchKey,
			fmt.Sprintf("object %q does not exist", key), nil)
	}
	return obj, nil
}

func sortedKeys(m map[string]*object) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// compile-time checks
var (
	_ filestore.Client       = (*Driver)(nil)
	_ filestore.BatchDeleter = (*Driver)(nil)
)
