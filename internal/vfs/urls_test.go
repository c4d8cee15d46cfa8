package vfs

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

func TestStripSigning(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "oss v1 with extra parameter",
			in:   "https://bucket.oss.example.com/tenant/docs/a.txt?Expires=1700000000&OSSAccessKeyId=AK&Signature=abc%2Bdef%3D&foo=bar",
			want: "https://bucket.oss.example.com/tenant/docs/a.txt?foo=bar",
		},
		{
			name: "nothing left drops the question mark",
			in:   "https://bucket.oss.example.com/a.txt?Expires=1&OSSAccessKeyId=AK&Signature=x",
			want: "https://bucket.oss.example.com/a.txt",
		},
		{
			name: "no query at all",
			in:   "http://bucket.local/a.txt",
			want: "http://bucket.local/a.txt",
		},
		{
			name: "remaining pairs are sorted and kept verbatim",
			in:   "https://b.local/k?z=1&Signature=s&a=x%20y&security-token=t&m=",
			want: "https://b.local/k?a=x%20y&m=&z=1",
		},
		{
			name: "s3 sigv4",
			in: "https://b.s3.amazonaws.com/k.pdf?X-Amz-Algorithm=AWS4-HMAC-SHA256" +
				"&X-Amz-Credential=AK%2F20260301%2Fus-east-1%2Fs3%2Faws4_request&X-Amz-Date=20260301T120000Z" +
				"&X-Amz-Expires=10&X-Amz-Security-Token=tok&X-Amz-SignedHeaders=host" +
				"&response-content-disposition=attachment%3B%20filename%3Dk.pdf&X-Amz-Signature=ff00",
			want: "https://b.s3.amazonaws.com/k.pdf?response-content-disposition=attachment%3B%20filename%3Dk.pdf",
		},
		{
			name: "s3 sigv2",
			in:   "https://b.s3.amazonaws.com/k?AWSAccessKeyId=AK&Expires=5&Signature=sig",
			want: "https://b.s3.amazonaws.com/k",
		},
		{
			name: "oss v4",
			in: "https://b.oss.example.com/k?x-oss-signature-version=OSS4-HMAC-SHA256&x-oss-credential=c" +
				"&x-oss-date=20260301T120000Z&x-oss-expires=60&x-oss-signature=s&versionId=v1",
			want: "https://b.oss.example.com/k?versionId=v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stripSigning(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripSigning_StableOrdering(t *testing.T) {
	a, err := stripSigning("https://b.local/k?b=2&a=1&Signature=s")
	require.NoError(t, err)
	b, err := stripSigning("https://b.local/k?Signature=s&a=1&b=2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStripSigning_Unparsable(t *testing.T) {
	_, err := stripSigning("://missing-scheme")
	require.Error(t, err)
	assert.True(t, errs.IsBackendFailure(err))
}

func TestTemporaryURL_Window(t *testing.T) {
	tests := []struct {
		name       string
		expiration time.Time
		want       time.Duration
	}{
		{name: "default window", expiration: time.Time{}, want: time.Hour},
		{name: "explicit seconds", expiration: testNow.Add(10 * time.Second), want: 10 * time.Second},
		{name: "fraction rounds up", expiration: testNow.Add(1500 * time.Millisecond), want: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient(t, filestore.ACLPrivate)
			seed(t, client, "a.txt")
			a := newAdapter(t, client, Config{})

			raw, err := a.TemporaryURL(context.Background(), "a.txt", tt.expiration, URLOptions{})
			require.NoError(t, err)

			require.Len(t, client.signs, 1)
			assert.Equal(t, tt.want, client.signs[0].Expiry)
			assert.Equal(t, "a.txt", client.signs[0].Key)

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, strconv.FormatInt(testNow.Add(tt.want).Unix(), 10), u.Query().Get("Expires"))
			assert.NotEmpty(t, u.Query().Get("Signature"))
		})
	}
}

func TestTemporaryURL_ConfiguredDefault(t *testing.T) {
	client := newFakeClient(t, filestore.ACLPrivate)
	a := newAdapter(t, client, Config{LinkExpiry: 15 * time.Minute})

	_, err := a.TemporaryURL(context.Background(), "a.txt", time.Time{}, URLOptions{})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, client.signs[0].Expiry)
}

func TestTemporaryURL_ExpirationNotInFuture(t *testing.T) {
	client := newFakeClient(t, filestore.ACLPrivate)
	a := newAdapter(t, client, Config{})

	for _, exp := range []time.Time{testNow, testNow.Add(-time.Minute)} {
		_, err := a.TemporaryURL(context.Background(), "a.txt", exp, URLOptions{})
		require.Error(t, err)
		assert.True(t, errs.IsInvalidArgument(err))
	}
	assert.Empty(t, client.signs)
}

func TestTemporaryURL_ForwardsOptions(t *testing.T) {
	client := newFakeClient(t, filestore.ACLPrivate)
	a := newAdapter(t, client, Config{Root: "tenant"})

	raw, err := a.TemporaryURL(context.Background(), "docs/a.txt", time.Time{}, URLOptions{
		Method: "PUT",
		Query:  map[string]string{"response-content-type": "text/plain"},
	})
	require.NoError(t, err)

	assert.Equal(t, "PUT", client.signs[0].Method)
	assert.Equal(t, "tenant/docs/a.txt", client.signs[0].Key)
	assert.Contains(t, raw, "response-content-type=text%2Fplain")
}

func TestPublicURL(t *testing.T) {
	client := newFakeClient(t, filestore.ACLPublicRead)
	a := newAdapter(t, client, Config{Root: "tenant"})

	got, err := a.PublicURL(context.Background(), "docs/a.txt", URLOptions{
		Query: map[string]string{"foo": "bar"},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://assets.oss.local/tenant/docs/a.txt?foo=bar", got)
	assert.Equal(t, time.Hour, client.signs[0].Expiry)

	got, err = a.PublicURL(context.Background(), "docs/a.txt", URLOptions{})
	require.NoError(t, err)
	assert.Equal(t, "http://assets.oss.local/tenant/docs/a.txt", got)
}

func TestPublicURL_BackendFailure(t *testing.T) {
	client := newFakeClient(t, filestore.ACLPrivate)
	a, err := NewAdapter(client, "missing-bucket", Config{})
	require.NoError(t, err)

	_, err = a.PublicURL(context.Background(), "a.txt", URLOptions{})
	require.Error(t, err)
	assert.True(t, errs.IsBackendFailure(err))
	assert.True(t, errs.IsNotFound(err))
}
