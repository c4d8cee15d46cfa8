package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  New(ErrKindInvalidArgument, "expiry must be positive"),
			want: "[invalid_argument] expiry must be positive",
		},
		{
			name: "with cause",
			err:  Wrap(ErrKindBackendFailure, "put object failed", cause),
			want: "[backend_failure] put object failed: connection reset",
		},
		{
			name: "with code",
			err:  WrapCode(ErrKindBackendFailure, CodeNoSuchKey, "get object failed", cause),
			want: "[backend_failure/NoSuchKey] get object failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestPredicates(t *testing.T) {
	backend := WrapCode(ErrKindBackendFailure, "AccessDenied", "denied", nil)
	missing := WrapCode(ErrKindBackendFailure, CodeNoSuchKey, "missing", nil)
	wrapped := fmt.Errorf("outer: %w", missing)

	assert.True(t, IsBackendFailure(backend))
	assert.False(t, IsNotFound(backend))
	assert.True(t, IsNotFound(missing))
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, IsInvalidArgument(New(ErrKindInvalidArgument, "bad")))
	assert.True(t, IsUnsupported(New(ErrKindUnsupported, "no acl")))
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestWrap_CarriesInnerCode(t *testing.T) {
	inner := WrapCode(ErrKindBackendFailure, CodeNoSuchKey, "get object failed", nil)
	outer := Wrap(ErrKindBackendFailure, "read docs/a.txt", inner)

	assert.Equal(t, CodeNoSuchKey, outer.Code)
	assert.True(t, errors.Is(outer, inner))
}
