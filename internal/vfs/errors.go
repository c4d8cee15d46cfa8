package vfs

import (
	"fmt"

	"github.com/koustreak/bucketfs/internal/errs"
)

// backendErr classifies a driver error for the caller. Errors the driver
// already marked as caller mistakes or missing capabilities keep their
// kind; everything else is a backend failure.
func backendErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch kind := errs.KindOf(err); kind {
	case errs.ErrKindInvalidArgument, errs.ErrKindUnsupported:
		return errs.Wrap(kind, msg, err)
	}
	return errs.Wrap(errs.ErrKindBackendFailure, msg, err)
}

func invalidOption(key string, raw any) error {
	return errs.New(errs.ErrKindInvalidArgument, fmt.Sprintf("option %q has unsupported type %T", key, raw))
}
