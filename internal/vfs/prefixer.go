package vfs

import (
	"fmt"
	"strings"

	"github.com/koustreak/bucketfs/internal/errs"
)

// Prefixer maps virtual paths to object keys under a fixed root prefix.
// It holds no mutable state.
type Prefixer struct {
	prefix string
}

// NewPrefixer normalizes root to either "" or "segment/.../segment/".
func NewPrefixer(root string) *Prefixer {
	root = strings.Trim(collapseSlashes(root), "/")
	if root != "" {
		root += "/"
	}
	return &Prefixer{prefix: root}
}

// Prefix returns the normalized root prefix.
func (p *Prefixer) Prefix() string {
	return p.prefix
}

// ObjectKey returns the object key for a virtual path. The empty path maps
// to the bare prefix.
func (p *Prefixer) ObjectKey(path string) string {
	return collapseSlashes(p.prefix + strings.TrimLeft(path, "/"))
}

// DirKey returns the key of the directory marker for path, which is also
// the listing prefix of the directory. The empty path maps to the bare prefix.
func (p *Prefixer) DirKey(path string) string {
	key := p.ObjectKey(path)
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}

// VirtualPath strips the root prefix from key. Keys outside the prefix are
// rejected with an InvalidKey error.
func (p *Prefixer) VirtualPath(key string) (string, error) {
	if !strings.HasPrefix(key, p.prefix) {
		return "", errs.WrapCode(errs.ErrKindInvalidArgument, errs.CodeInvalidKey,
			fmt.Sprintf("key %q is outside root prefix %q", key, p.prefix), nil)
	}
	return key[len(p.prefix):], nil
}

func collapseSlashes(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}
