package vfs

import (
	"context"
	"fmt"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

// Visibility is the caller-facing access level of a file.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// ParseVisibility accepts "public" or "private".
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(s)
	if !v.valid() {
		return "", errs.New(errs.ErrKindInvalidArgument, fmt.Sprintf("unknown visibility %q", s))
	}
	return v, nil
}

// ACLFor returns the canned ACL token for v.
func ACLFor(v Visibility) string {
	if v == VisibilityPublic {
		return filestore.ACLPublicRead
	}
	return filestore.ACLPrivate
}

// visibilityFromACL maps a concrete (non-default) ACL token.
func visibilityFromACL(acl string) Visibility {
	if acl == filestore.ACLPrivate {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

// visibilityResolver reads object ACLs and resolves bucket inheritance.
type visibilityResolver struct {
	client filestore.Client
	bucket string
}

// resolve returns the effective visibility of key. An object whose ACL is
// "default" takes the bucket ACL; a bucket that itself reports "default"
// is treated as private.
func (r *visibilityResolver) resolve(ctx context.Context, key string) (Visibility, error) {
	acl, err := r.client.GetObjectACL(ctx, r.bucket, key)
	if err != nil {
		return "", err
	}
	if acl != filestore.ACLDefault {
		return visibilityFromACL(acl), nil
	}

	acl, err = r.client.GetBucketACL(ctx, r.bucket)
	if err != nil {
		return "", err
	}
	if acl == filestore.ACLDefault {
		return VisibilityPrivate, nil
	}
	return visibilityFromACL(acl), nil
}
