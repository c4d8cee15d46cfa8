package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/logger"
)

// errorBody is the JSON envelope of every failed request.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// statusFor maps an error to its HTTP status. Missing objects win over the
// generic backend failure status.
func statusFor(err error) int {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errs.IsUnsupported(err):
		return http.StatusNotImplemented
	case errs.IsBackendFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).WarnWith("request failed", err, map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
		})
	}
	respondJSON(w, status, errorBody{
		Error:   errs.KindOf(err).String(),
		Code:    errs.CodeOf(err),
		Message: err.Error(),
	})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeJSON reads a JSON request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.ErrKindInvalidArgument, "malformed request body", err)
	}
	return nil
}
