package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

func TestACLFor(t *testing.T) {
	assert.Equal(t, "public-read", ACLFor(VisibilityPublic))
	assert.Equal(t, "private", ACLFor(VisibilityPrivate))
}

func TestParseVisibility(t *testing.T) {
	v, err := ParseVisibility("public")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, v)

	_, err = ParseVisibility("default")
	assert.True(t, errs.IsInvalidArgument(err))
}

func TestGetVisibility_ResolvesInheritance(t *testing.T) {
	tests := []struct {
		name      string
		bucketACL string
		objectACL string // "" leaves the object inheriting
		want      Visibility
	}{
		{name: "inherit public bucket", bucketACL: filestore.ACLPublicRead, want: VisibilityPublic},
		{name: "inherit private bucket", bucketACL: filestore.ACLPrivate, want: VisibilityPrivate},
		{name: "inherit public read write bucket", bucketACL: filestore.ACLPublicReadWrite, want: VisibilityPublic},
		{name: "inherit unresolvable bucket", bucketACL: filestore.ACLDefault, want: VisibilityPrivate},
		{name: "own private on public bucket", bucketACL: filestore.ACLPublicRead, objectACL: filestore.ACLPrivate, want: VisibilityPrivate},
		{name: "own public on private bucket", bucketACL: filestore.ACLPrivate, objectACL: filestore.ACLPublicRead, want: VisibilityPublic},
		{name: "own public read write", bucketACL: filestore.ACLPrivate, objectACL: filestore.ACLPublicReadWrite, want: VisibilityPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client := newFakeClient(t, tt.bucketACL)
			seed(t, client, "f.txt")
			if tt.objectACL != "" {
				require.NoError(t, client.Driver.PutObjectACL(ctx, testBucket, "f.txt", tt.objectACL))
			}
			a := newAdapter(t, client, Config{})

			got, err := a.GetVisibility(ctx, "f.txt")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetVisibility(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient(t, filestore.ACLPrivate)
	seed(t, client, "f.txt")
	a := newAdapter(t, client, Config{})

	require.NoError(t, a.SetVisibility(ctx, "f.txt", VisibilityPublic))
	acl, err := client.GetObjectACL(ctx, testBucket, "f.txt")
	require.NoError(t, err)
	assert.Equal(t, filestore.ACLPublicRead, acl)

	v, err := a.GetVisibility(ctx, "f.txt")
	require.NoError(t, err)
	assert.Equal(t, VisibilityPublic, v)

	err = a.SetVisibility(ctx, "f.txt", "world")
	assert.True(t, errs.IsInvalidArgument(err))
}

func TestSetVisibility_KeepsUnsupportedKind(t *testing.T) {
	client := newFakeClient(t, filestore.ACLPrivate)
	client.failPutACL = errs.New(errs.ErrKindUnsupported, "no object acls")
	seed(t, client, "f.txt")
	a := newAdapter(t, client, Config{})

	err := a.SetVisibility(context.Background(), "f.txt", VisibilityPrivate)
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
}

func TestGetVisibility_MissingObject(t *testing.T) {
	a := newAdapter(t, newFakeClient(t, filestore.ACLPrivate), Config{})

	_, err := a.GetVisibility(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errs.IsBackendFailure(err))
	assert.True(t, errs.IsNotFound(err))
}
