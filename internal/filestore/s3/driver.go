// Package s3 provides an Amazon S3 (and S3-compatible) implementation of
// filestore.Client built on the AWS SDK for Go v2.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

// maxDeleteBatch is the S3 limit for one DeleteObjects request.
const maxDeleteBatch = 1000

func init() {
	filestore.Register(filestore.ProviderS3, func(ctx context.Context, cfg *filestore.Config) (filestore.Client, error) {
		return New(ctx, cfg)
	})
}

// Driver implements filestore.Client using Amazon S3.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client    *awss3.Client
	presigner *awss3.PresignClient
}

// New builds an S3 client from cfg. Static credentials are used when both
// keys are set; otherwise the SDK's default credential chain applies.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindBackendFailure, "failed to load aws config", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			scheme := "http"
			if cfg.UseSSL {
				scheme = "https"
			}
			endpoint = scheme + "://" + endpoint
		}
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	} else if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewFromClient(awss3.NewFromConfig(awsCfg, s3Opts...)), nil
}

// NewFromClient wraps an existing SDK client.
func NewFromClient(client *awss3.Client) *Driver {
	return &Driver{client: client, presigner: awss3.NewPresignClient(client)}
}

// --- filestore.Client implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx, &awss3.ListBucketsInput{}); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() error { return nil }

func (d *Driver) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, mapError(err, "failed to check object existence")
	}
	return true, nil
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := d.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, mapError(err, "failed to read object body")
	}
	return data, nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, data []byte, opts filestore.PutOptions) error {
	in := &awss3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(data),
		Metadata: map[string]string{},
	}
	if opts.ACL != "" {
		in.ACL = types.ObjectCannedACL(opts.ACL)
	}

	for k, v := range opts.Headers {
		switch http.CanonicalHeaderKey(k) {
		case "Content-Type":
			in.ContentType = aws.String(v)
		case "Content-Md5":
			in.ContentMD5 = aws.String(v)
		case "Content-Length":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errs.Wrap(errs.ErrKindInvalidArgument, "declared size is not a number", err)
			}
			in.ContentLength = aws.Int64(n)
		case "Content-Encoding":
			in.ContentEncoding = aws.String(v)
		case "Content-Disposition":
			in.ContentDisposition = aws.String(v)
		case "Content-Language":
			in.ContentLanguage = aws.String(v)
		case "Cache-Control":
			in.CacheControl = aws.String(v)
		case "Expires":
			if t, err := http.ParseTime(v); err == nil {
				in.Expires = aws.Time(t)
			}
		default:
			in.Metadata[strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")] = v
		}
	}

	var optFns []func(*awss3.Options)
	if opts.DisableChecksum {
		optFns = append(optFns, func(o *awss3.Options) {
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		})
	}

	if _, err := d.client.PutObject(ctx, in, optFns...); err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

func (d *Driver) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := d.client.CopyObject(ctx, &awss3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(srcBucket, srcKey)),
	})
	if err != nil {
		return mapError(err, "failed to copy object")
	}
	return nil
}

func (d *Driver) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := d.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapError(err, "failed to delete object")
	}
	return nil
}

// DeleteObjects removes keys in batches of up to 1000. The first per-key
// failure reported by S3 is returned.
func (d *Driver) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := d.client.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return mapError(err, "failed to delete objects")
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return errs.WrapCode(errs.ErrKindBackendFailure, aws.ToString(e.Code),
				fmt.Sprintf("failed to delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message)), nil)
		}
	}
	return nil
}

// ListObjects issues one V1 ListObjects request.
func (d *Driver) ListObjects(ctx context.Context, bucket string, req filestore.ListRequest) (*filestore.ListPage, error) {
	in := &awss3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(req.Prefix),
	}
	if req.Delimiter != "" {
		in.Delimiter = aws.String(req.Delimiter)
	}
	if req.Marker != "" {
		in.Marker = aws.String(req.Marker)
	}
	if req.MaxKeys > 0 {
		in.MaxKeys = aws.Int32(int32(req.MaxKeys))
	}

	out, err := d.client.ListObjects(ctx, in)
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	page := &filestore.ListPage{}
	for _, p := range out.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, aws.ToString(p.Prefix))
	}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, filestore.ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         aws.ToString(obj.ETag),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	if aws.ToBool(out.IsTruncated) {
		page.NextMarker = aws.ToString(out.NextMarker)
		if page.NextMarker == "" {
			page.NextMarker = lastEntry(page)
		}
	}
	return page, nil
}

func (d *Driver) GetObjectMeta(ctx context.Context, bucket, key string) (*filestore.ObjectMeta, error) {
	out, err := d.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	meta := &filestore.ObjectMeta{
		ObjectInfo: filestore.ObjectInfo{
			Key:          key,
			Size:         aws.ToInt64(out.ContentLength),
			ContentType:  aws.ToString(out.ContentType),
			ETag:         aws.ToString(out.ETag),
			LastModified: aws.ToTime(out.LastModified),
		},
		Headers: map[string]string{
			filestore.HeaderContentType:   aws.ToString(out.ContentType),
			filestore.HeaderContentLength: strconv.FormatInt(aws.ToInt64(out.ContentLength), 10),
			filestore.HeaderETag:          aws.ToString(out.ETag),
		},
	}
	if out.LastModified != nil {
		meta.Headers[filestore.HeaderLastModified] = out.LastModified.UTC().Format(http.TimeFormat)
	}
	if out.CacheControl != nil {
		meta.Headers["Cache-Control"] = *out.CacheControl
	}
	for k, v := range out.Metadata {
		meta.Headers["X-Amz-Meta-"+k] = v
	}
	return meta, nil
}

func (d *Driver) GetObjectACL(ctx context.Context, bucket, key string) (string, error) {
	out, err := d.client.GetObjectAcl(ctx, &awss3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", mapError(err, "failed to get object acl")
	}
	return cannedACL(out.Grants), nil
}

func (d *Driver) GetBucketACL(ctx context.Context, bucket string) (string, error) {
	out, err := d.client.GetBucketAcl(ctx, &awss3.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", mapError(err, "failed to get bucket acl")
	}
	return cannedACL(out.Grants), nil
}

func (d *Driver) PutObjectACL(ctx context.Context, bucket, key, acl string) error {
	if acl == filestore.ACLDefault {
		return errs.New(errs.ErrKindUnsupported, "s3 has no bucket-inherited object ACL")
	}
	_, err := d.client.PutObjectAcl(ctx, &awss3.PutObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACL(acl),
	})
	if err != nil {
		return mapError(err, "failed to put object acl")
	}
	return nil
}

// SignURL presigns a GET, PUT, HEAD or DELETE request. Query entries named
// response-* override the matching response headers of a GET.
func (d *Driver) SignURL(ctx context.Context, bucket string, req filestore.SignRequest) (string, error) {
	expires := awss3.WithPresignExpires(req.Expiry)

	var (
		out *v4.PresignedHTTPRequest
		err error
	)
	switch strings.ToUpper(req.Method) {
	case "", http.MethodGet:
		in := &awss3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(req.Key)}
		applyResponseOverrides(in, req.Query)
		out, err = d.presigner.PresignGetObject(ctx, in, expires)
	case http.MethodPut:
		out, err = d.presigner.PresignPutObject(ctx,
			&awss3.PutObjectInput{Bucket: aws.String(bucket), Key: aws.String(req.Key)}, expires)
	case http.MethodHead:
		out, err = d.presigner.PresignHeadObject(ctx,
			&awss3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(req.Key)}, expires)
	case http.MethodDelete:
		out, err = d.presigner.PresignDeleteObject(ctx,
			&awss3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(req.Key)}, expires)
	default:
		return "", errs.New(errs.ErrKindUnsupported, fmt.Sprintf("cannot presign %s requests", req.Method))
	}
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return out.URL, nil
}

// --- internal helpers ---

func copySource(bucket, key string) string {
	return bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

func applyResponseOverrides(in *awss3.GetObjectInput, query map[string]string) {
	for k, v := range query {
		switch strings.ToLower(k) {
		case "response-content-type":
			in.ResponseContentType = aws.String(v)
		case "response-content-disposition":
			in.ResponseContentDisposition = aws.String(v)
		case "response-content-encoding":
			in.ResponseContentEncoding = aws.String(v)
		case "response-content-language":
			in.ResponseContentLanguage = aws.String(v)
		case "response-cache-control":
			in.ResponseCacheControl = aws.String(v)
		case "response-expires":
			if t, err := time.Parse(http.TimeFormat, v); err == nil {
				in.ResponseExpires = aws.Time(t)
			}
		}
	}
}

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
