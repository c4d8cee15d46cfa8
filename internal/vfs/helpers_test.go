package vfs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
	"github.com/koustreak/bucketfs/internal/filestore/memory"
)

const testBucket = "assets"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClient wraps the in-memory driver with call recording and fault
// injection.
type fakeClient struct {
	*memory.Driver

	mu            sync.Mutex
	listCalls     int
	failListOn    int // 1-based ListObjects call that fails; 0 never
	failDelete    bool
	failPutACL    error
	puts          []filestore.PutOptions
	signs         []filestore.SignRequest
	batchDeletes  [][]string
	singleDeletes []string
}

func newFakeClient(t *testing.T, bucketACL string) *fakeClient {
	t.Helper()
	d := memory.New(memory.WithClock(func() time.Time { return testNow }))
	d.CreateBucket(testBucket, bucketACL)
	return &fakeClient{Driver: d}
}

func (f *fakeClient) ListObjects(ctx context.Context, bucket string, req filestore.ListRequest) (*filestore.ListPage, error) {
	f.mu.Lock()
	f.listCalls++
	fail := f.failListOn != 0 && f.listCalls == f.failListOn
	f.mu.Unlock()
	if fail {
		return nil, errs.WrapCode(errs.ErrKindBackendFailure, "InternalError", "injected list failure", nil)
	}
	return f.Driver.ListObjects(ctx, bucket, req)
}

func (f *fakeClient) PutObject(ctx context.Context, bucket, key string, data []byte, opts filestore.PutOptions) error {
	f.mu.Lock()
	f.puts = append(f.puts, opts)
	f.mu.Unlock()
	return f.Driver.PutObject(ctx, bucket, key, data, opts)
}

func (f *fakeClient) DeleteObject(ctx context.Context, bucket, key string) error {
	if f.failDelete {
		return errs.WrapCode(errs.ErrKindBackendFailure, "AccessDenied", "injected delete failure", nil)
	}
	f.mu.Lock()
	f.singleDeletes = append(f.singleDeletes, key)
	f.mu.Unlock()
	return f.Driver.DeleteObject(ctx, bucket, key)
}

func (f *fakeClient) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	f.mu.Lock()
	f.batchDeletes = append(f.batchDeletes, append([]string(nil), keys...))
	f.mu.Unlock()
	return f.Driver.DeleteObjects(ctx, bucket, keys)
}

func (f *fakeClient) PutObjectACL(ctx context.Context, bucket, key, acl string) error {
	if f.failPutACL != nil {
		return f.failPutACL
	}
	return f.Driver.PutObjectACL(ctx, bucket, key, acl)
}

func (f *fakeClient) SignURL(ctx context.Context, bucket string, req filestore.SignRequest) (string, error) {
	f.mu.Lock()
	f.signs = append(f.signs, req)
	f.mu.Unlock()
	return f.Driver.SignURL(ctx, bucket, req)
}

func (f *fakeClient) lastPut() filestore.PutOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts[len(f.puts)-1]
}

// singleDeleteClient hides DeleteObjects so callers must fan out.
type singleDeleteClient struct {
	filestore.Client
}

func newAdapter(t *testing.T, client filestore.Client, cfg Config) *Adapter {
	t.Helper()
	a, err := NewAdapter(client, testBucket, cfg, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return a
}

// seed writes each key, a trailing "/" producing a directory marker.
func seed(t *testing.T, c filestore.Client, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var body []byte
		if k[len(k)-1] != '/' {
			body = []byte("data:" + k)
		}
		require.NoError(t, c.PutObject(context.Background(), testBucket, k, body, filestore.PutOptions{}))
	}
}
