package vfs

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

// signingParams are the query parameters that carry request credentials in
// OSS (v1 and v4), S3 SigV2 and S3 SigV4 signed URLs. Compared lower-cased.
var signingParams = map[string]bool{
	"ossaccesskeyid":           true,
	"awsaccesskeyid":           true,
	"expires":                  true,
	"signature":                true,
	"security-token":           true,
	"x-oss-security-token":     true,
	"x-oss-signature-version":  true,
	"x-oss-credential":         true,
	"x-oss-date":               true,
	"x-oss-expires":            true,
	"x-oss-signature":          true,
	"x-oss-additional-headers": true,
	"x-amz-algorithm":          true,
	"x-amz-credential":         true,
	"x-amz-date":               true,
	"x-amz-expires":            true,
	"x-amz-signedheaders":      true,
	"x-amz-signature":          true,
	"x-amz-security-token":     true,
}

// signer produces temporary (signed) and public (credential-free) URLs.
type signer struct {
	client        filestore.Client
	bucket        string
	prefix        *Prefixer
	defaultExpiry time.Duration
	now           func() time.Time
}

// window resolves the signing window: the configured default for a zero
// expiration, otherwise expiration minus now rounded up to whole seconds.
func (s *signer) window(expiration time.Time) (time.Duration, error) {
	if expiration.IsZero() {
		return s.defaultExpiry, nil
	}
	w := expiration.Sub(s.now())
	if w <= 0 {
		return 0, errs.New(errs.ErrKindInvalidArgument,
			fmt.Sprintf("expiration %s is not in the future", expiration.Format(time.RFC3339)))
	}
	return (w + time.Second - 1).Truncate(time.Second), nil
}

func (s *signer) temporaryURL(ctx context.Context, path string, expiration time.Time, opts URLOptions) (string, error) {
	w, err := s.window(expiration)
	if err != nil {
		return "", err
	}
	return s.client.SignURL(ctx, s.bucket, filestore.SignRequest{
		Key:    s.prefix.ObjectKey(path),
		Expiry: w,
		Method: opts.Method,
		Query:  opts.Query,
	})
}

func (s *signer) publicURL(ctx context.Context, path string, opts URLOptions) (string, error) {
	signed, err := s.temporaryURL(ctx, path, time.Time{}, opts)
	if err != nil {
		return "", err
	}
	return stripSigning(signed)
}

// stripSigning removes the signing parameters from rawURL. Every other pair
// is kept byte-for-byte and sorted by name; scheme, host and path are
// untouched. With nothing left the URL carries no "?".
func stripSigning(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindBackendFailure, "backend returned an unparsable signed URL", err)
	}

	type pair struct{ name, raw string }
	var kept []pair
	for _, raw := range strings.Split(u.RawQuery, "&") {
		if raw == "" {
			continue
		}
		name, _, _ := strings.Cut(raw, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if signingParams[strings.ToLower(name)] {
			continue
		}
		kept = append(kept, pair{name: name, raw: raw})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].name < kept[j].name })

	parts := make([]string, len(kept))
	for i, p := range kept {
		parts[i] = p.raw
	}
	u.RawQuery = strings.Join(parts, "&")
	u.ForceQuery = false
	return u.String(), nil
}
