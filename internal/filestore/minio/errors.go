package minio

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/bucketfs/internal/errs"
	minioErr "github.com/minio/minio-go/v7"
)

// mapError translates a MinIO SDK error into a *errs.Error.
// Every SDK error is a backend failure; the S3 error code is kept so callers
// can still tell a missing key from an auth failure.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.WrapCode(errs.ErrKindBackendFailure, errs.CodeTimeout, msg, err)
	}

	// MinIO SDK exposes a typed ErrorResponse for S3-protocol errors
	var resp minioErr.ErrorResponse
	if errors.As(err, &resp) {
		if resp.Code != "" {
			return errs.WrapCode(errs.ErrKindBackendFailure, resp.Code, msg, err)
		}
		// HEAD responses carry no body, so only the status is known
		switch resp.StatusCode {
		case http.StatusNotFound:
			return errs.WrapCode(errs.ErrKindBackendFailure, errs.CodeNotFound, msg, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return errs.WrapCode(errs.ErrKindBackendFailure, "AccessDenied", msg, err)
		}
	}

	// Anything else: network or I/O failure with no backend code
	return errs.Wrap(errs.ErrKindBackendFailure, msg, err)
}

// isMissing reports whether a stat error means "no such object".
func isMissing(err error) bool {
	resp := minioErr.ToErrorResponse(err)
	return resp.Code == errs.CodeNoSuchKey || resp.StatusCode == http.StatusNotFound
}
