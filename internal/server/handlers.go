package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
	"github.com/koustreak/bucketfs/internal/vfs"
)

// HeaderVisibility selects the visibility of an uploaded file.
const HeaderVisibility = "X-Bucketfs-Visibility"

type moveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type visibilityBody struct {
	Visibility vfs.Visibility `json:"visibility"`
}

type linkBody struct {
	URL string `json:"url"`
}

func pathParam(r *http.Request) string {
	return strings.TrimPrefix(chi.URLParam(r, "*"), "/")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	path := pathParam(r)
	meta, err := s.fs.GetMetadata(r.Context(), path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	data, err := s.fs.Read(r.Context(), path)
	if err != nil {
		respondError(w, r, err)
		return
	}
	setMetaHeaders(w, meta)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	meta, err := s.fs.GetMetadata(r.Context(), pathParam(r))
	if err != nil {
		w.WriteHeader(statusFor(err))
		return
	}
	setMetaHeaders(w, meta)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.WriteHeader(http.StatusOK)
}

func setMetaHeaders(w http.ResponseWriter, meta *vfs.Metadata) {
	if meta.Mimetype != "" {
		w.Header().Set("Content-Type", meta.Mimetype)
	}
	if meta.ETag != "" {
		w.Header().Set("ETag", meta.ETag)
	}
	if !meta.Timestamp.IsZero() {
		w.Header().Set("Last-Modified", meta.Timestamp.UTC().Format(http.TimeFormat))
	}
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	opts := vfs.WriteOptions{
		ContentType: r.Header.Get("Content-Type"),
		ContentMD5:  r.Header.Get(filestore.HeaderContentMD5),
	}
	if v := r.Header.Get(HeaderVisibility); v != "" {
		vis, err := vfs.ParseVisibility(v)
		if err != nil {
			respondError(w, r, err)
			return
		}
		opts.Visibility = vis
	}
	if cc := r.Header.Get("Cache-Control"); cc != "" {
		opts.Headers = map[string]string{"Cache-Control": cc}
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodySize)
	meta, err := s.fs.WriteStream(r.Context(), pathParam(r), body, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, meta)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.fs.Delete(r.Context(), pathParam(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
	dir := pathParam(r)

	entries := s.fs.ListContents(r.Context(), dir, recursive)
	if entries == nil {
		respondError(w, r, errs.Newf(errs.ErrKindBackendFailure, "listing %q failed", dir))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"directory": dir, "entries": entries})
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.fs.GetMetadata(r.Context(), pathParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

func (s *Server) handleGetVisibility(w http.ResponseWriter, r *http.Request) {
	v, err := s.fs.GetVisibility(r.Context(), pathParam(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, visibilityBody{Visibility: v})
}

func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	var body visibilityBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.fs.SetVisibility(r.Context(), pathParam(r), body.Visibility); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleCreateDir(w http.ResponseWriter, r *http.Request) {
	var opts vfs.WriteOptions
	if v := r.Header.Get(HeaderVisibility); v != "" {
		vis, err := vfs.ParseVisibility(v)
		if err != nil {
			respondError(w, r, err)
			return
		}
		opts.Visibility = vis
	}
	if err := s.fs.CreateDir(r.Context(), pathParam(r), opts); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteDir(w http.ResponseWriter, r *http.Request) {
	if err := s.fs.DeleteDir(r.Context(), pathParam(r)); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	s.handleMove(w, r, s.fs.Rename)
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	s.handleMove(w, r, s.fs.Copy)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, from, to string) error) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.From == "" || req.To == "" {
		respondError(w, r, errs.New(errs.ErrKindInvalidArgument, "from and to are required"))
		return
	}
	if err := op(r.Context(), req.From, req.To); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := pathParam(r)
	opts := vfs.URLOptions{Method: strings.ToUpper(q.Get("method"))}
	if disp := q.Get("response-content-disposition"); disp != "" {
		opts.Query = map[string]string{"response-content-disposition": disp}
	}

	if public, _ := strconv.ParseBool(q.Get("public")); public {
		u, err := s.fs.PublicURL(r.Context(), path, opts)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, linkBody{URL: u})
		return
	}

	var expiration time.Time
	if raw := q.Get("expires"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, errs.Wrap(errs.ErrKindInvalidArgument, "expires must be RFC3339", err))
			return
		}
		expiration = t
	}
	u, err := s.fs.TemporaryURL(r.Context(), path, expiration, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, linkBody{URL: u})
}
