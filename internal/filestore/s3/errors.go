package s3

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"github.com/koustreak/bucketfs/internal/errs"
)

// mapError translates an AWS SDK error into a *errs.Error, keeping the
// S3 error code ("NoSuchKey", "AccessDenied", …) when the service sent one.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.WrapCode(errs.ErrKindBackendFailure, errs.CodeTimeout, msg, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return errs.WrapCode(errs.ErrKindBackendFailure, apiErr.ErrorCode(), msg, err)
	}

	return errs.Wrap(errs.ErrKindBackendFailure, msg, err)
}

// isMissing reports whether a HEAD error means "no such object".
func isMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case errs.CodeNotFound, errs.CodeNoSuchKey:
		return true
	}
	return false
}
