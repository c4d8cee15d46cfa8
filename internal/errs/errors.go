// Package errs provides the unified error type used across all of bucketfs.
//
// Every subsystem (filestore drivers, the vfs adapter, the HTTP gateway)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors, keeping the backend's code:
//	return errs.WrapCode(errs.ErrKindBackendFailure, "NoSuchKey", "get object failed", err)
//
//	// In a handler, check the error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// All backends (MinIO, S3, in-memory) map their native errors to one of
// these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown         ErrKind = iota
	ErrKindBackendFailure          // anything the storage client raised: network, auth, missing key, quota
	ErrKindInvalidArgument         // bad arguments from the caller (malformed key, non-positive expiry)
	ErrKindUnsupported             // capability the backend cannot provide
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindBackendFailure:
		return "backend_failure"
	case ErrKindInvalidArgument:
		return "invalid_argument"
	case ErrKindUnsupported:
		return "unsupported_operation"
	default:
		return "unknown"
	}
}

// Backend codes shared across drivers. Drivers pass through the backend's
// own code when it has one; these cover the cases where it does not.
const (
	CodeNotFound   = "NotFound"
	CodeNoSuchKey  = "NoSuchKey"
	CodeInvalidKey = "InvalidKey"
	CodeTimeout    = "Timeout"
)

var notFoundCodes = map[string]bool{
	CodeNotFound:     true,
	CodeNoSuchKey:    true,
	"NoSuchBucket":   true,
	"NoSuchUpload":   true,
	"NoSuchVersion":  true,
	"ObjectNotFound": true,
}

// Error is the single error type returned by all bucketfs subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Code    string // backend-native code, e.g. "NoSuchKey"; may be empty
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Code != "" {
		prefix += "/" + e.Code
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
// The backend code of cause, if any, is carried over.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: CodeOf(cause), Message: msg, Cause: cause}
}

// WrapCode is Wrap with an explicit backend code.
func WrapCode(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsBackendFailure reports whether err was raised by the storage backend.
func IsBackendFailure(err error) bool {
	return KindOf(err) == ErrKindBackendFailure
}

// IsInvalidArgument reports whether err was caused by bad input from the caller.
func IsInvalidArgument(err error) bool {
	return KindOf(err) == ErrKindInvalidArgument
}

// IsUnsupported reports whether err rejects a capability the backend lacks.
func IsUnsupported(err error) bool {
	return KindOf(err) == ErrKindUnsupported
}

// IsNotFound reports whether err is a backend failure caused by a missing
// object or bucket.
func IsNotFound(err error) bool {
	return notFoundCodes[CodeOf(err)]
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// CodeOf returns the first non-empty backend code found in the chain.
func CodeOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Code != "" {
			return e.Code
		}
		err = e.Cause
	}
	return ""
}
