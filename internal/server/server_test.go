package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
	"github.com/koustreak/bucketfs/internal/filestore/memory"
	"github.com/koustreak/bucketfs/internal/vfs"
)

const testBucket = "assets"

func newTestServer(t *testing.T, opts ...Option) (*Server, *memory.Driver) {
	t.Helper()
	d := memory.New()
	d.CreateBucket(testBucket, filestore.ACLPrivate)
	fs, err := vfs.NewAdapter(d, testBucket, vfs.Config{Root: "site"})
	require.NoError(t, err)
	return New(Config{}, fs, opts...), d
}

func do(t *testing.T, s *Server, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	down, _ := newTestServer(t, WithHealthCheck(func(context.Context) error { return errors.New("unreachable") }))
	rec = do(t, down, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFiles_WriteReadDelete(t *testing.T) {
	s, d := newTestServer(t)

	rec := do(t, s, http.MethodPut, "/files/docs/hello.txt", "hello there",
		"Content-Type", "text/plain", HeaderVisibility, "public")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	meta := decode[vfs.Metadata](t, rec)
	assert.Equal(t, "docs/hello.txt", meta.Path)
	assert.Equal(t, int64(11), meta.Size)
	assert.Equal(t, vfs.VisibilityPublic, meta.Visibility)
	assert.Equal(t, []string{"site/docs/hello.txt"}, d.Keys(testBucket))

	rec = do(t, s, http.MethodGet, "/files/docs/hello.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello there", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	rec = do(t, s, http.MethodHead, "/files/docs/hello.txt", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))

	rec = do(t, s, http.MethodDelete, "/files/docs/hello.txt", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, d.Keys(testBucket))

	rec = do(t, s, http.MethodHead, "/files/docs/hello.txt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFiles_ErrorMapping(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/files/missing.txt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "backend_failure", body.Error)
	assert.Equal(t, errs.CodeNoSuchKey, body.Code)

	rec = do(t, s, http.MethodPut, "/files/a.txt", "x", HeaderVisibility, "everyone")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/files/a.txt", "x", "Content-MD5", "AAAAAAAAAAAAAAAAAAAAAA==")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "InvalidDigest", decode[errorBody](t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.WrapCode(errs.ErrKindBackendFailure, errs.CodeNoSuchKey, "gone", nil), http.StatusNotFound},
		{errs.New(errs.ErrKindBackendFailure, "boom"), http.StatusBadGateway},
		{errs.New(errs.ErrKindInvalidArgument, "bad"), http.StatusBadRequest},
		{errs.New(errs.ErrKindUnsupported, "no"), http.StatusNotImplemented},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestList(t *testing.T) {
	s, _ := newTestServer(t)
	for _, p := range []string{"a.txt", "sub/b.txt", "sub/deeper/c.txt"} {
		require.Equal(t, http.StatusCreated, do(t, s, http.MethodPut, "/files/"+p, "x").Code)
	}

	type listing struct {
		Directory string      `json:"directory"`
		Entries   []vfs.Entry `json:"entries"`
	}

	rec := do(t, s, http.MethodGet, "/list", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listing](t, rec).Entries, 2)

	rec = do(t, s, http.MethodGet, "/list/sub?recursive=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[listing](t, rec)
	assert.Equal(t, "sub", got.Directory)
	assert.Len(t, got.Entries, 3)

	rec = do(t, s, http.MethodGet, "/list/empty", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listing](t, rec).Entries)
}

func TestVisibility(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPut, "/files/v.txt", "x").Code)

	rec := do(t, s, http.MethodGet, "/visibility/v.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vfs.VisibilityPrivate, decode[visibilityBody](t, rec).Visibility)

	rec = do(t, s, http.MethodPut, "/visibility/v.txt", `{"visibility":"public"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/visibility/v.txt", "")
	assert.Equal(t, vfs.VisibilityPublic, decode[visibilityBody](t, rec).Visibility)

	rec = do(t, s, http.MethodPut, "/visibility/v.txt", `{"visibility":"open"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/visibility/v.txt", `{"level":"public"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDirs(t *testing.T) {
	s, d := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/dirs/photos", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPut, "/files/photos/a.jpg", "x").Code)
	assert.Equal(t, []string{"site/photos/", "site/photos/a.jpg"}, d.Keys(testBucket))

	rec = do(t, s, http.MethodDelete, "/dirs/photos", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, d.Keys(testBucket))

	rec = do(t, s, http.MethodDelete, "/dirs/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOps(t *testing.T) {
	s, d := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPut, "/files/a.txt", "x").Code)

	rec := do(t, s, http.MethodPost, "/ops/copy", `{"from":"a.txt","to":"b.txt"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"site/a.txt", "site/b.txt"}, d.Keys(testBucket))

	rec = do(t, s, http.MethodPost, "/ops/rename", `{"from":"b.txt","to":"c.txt"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"site/a.txt", "site/c.txt"}, d.Keys(testBucket))

	rec = do(t, s, http.MethodPost, "/ops/rename", `{"from":"a.txt"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/ops/copy", `{"from":"nope.txt","to":"x.txt"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLinks(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/links/docs/a.txt?public=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://assets.oss.local/site/docs/a.txt", decode[linkBody](t, rec).URL)

	expires := time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)
	rec = do(t, s, http.MethodGet, "/links/docs/a.txt?expires="+url.QueryEscape(expires), "")
	require.Equal(t, http.StatusOK, rec.Code)
	signed, err := url.Parse(decode[linkBody](t, rec).URL)
	require.NoError(t, err)
	assert.Equal(t, "/site/docs/a.txt", signed.Path)
	assert.NotEmpty(t, signed.Query().Get("Signature"))

	rec = do(t, s, http.MethodGet, "/links/docs/a.txt?expires=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	rec = do(t, s, http.MethodGet, "/links/docs/a.txt?expires="+url.QueryEscape(past), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
