package vfs

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/bucketfs/internal/errs"
	"github.com/koustreak/bucketfs/internal/filestore"
)

const delimiter = "/"

// lister rebuilds directory trees from delimiter-scoped, marker-paginated
// listings.
type lister struct {
	client   filestore.Client
	bucket   string
	prefix   *Prefixer
	pageSize int
	maxDepth int
}

// list returns the entries of directory, descending into every discovered
// subdirectory when recursive is set. Any failure discards everything
// collected so far.
func (l *lister) list(ctx context.Context, directory string, recursive bool) ([]Entry, error) {
	return l.walk(ctx, directory, recursive, 0)
}

func (l *lister) walk(ctx context.Context, directory string, recursive bool, depth int) ([]Entry, error) {
	if depth > l.maxDepth {
		return nil, errs.New(errs.ErrKindInvalidArgument,
			fmt.Sprintf("listing %q exceeds max depth %d", directory, l.maxDepth))
	}

	dirKey := l.prefix.DirKey(directory)
	entries := []Entry{}
	var subdirs []string

	marker := ""
	for {
		page, err := l.client.ListObjects(ctx, l.bucket, filestore.ListRequest{
			Prefix:    dirKey,
			Delimiter: delimiter,
			Marker:    marker,
			MaxKeys:   l.pageSize,
		})
		if err != nil {
			return nil, err
		}

		for _, p := range page.Prefixes {
			path, err := l.prefix.VirtualPath(p)
			if err != nil {
				return nil, err
			}
			path = strings.TrimSuffix(path, delimiter)
			entries = append(entries, Entry{Type: EntryDir, Path: path})
			subdirs = append(subdirs, path)
		}

		for _, obj := range page.Objects {
			// the directory's own marker object
			if obj.Size == 0 && obj.Key == dirKey {
				continue
			}
			path, err := l.prefix.VirtualPath(obj.Key)
			if err != nil {
				return nil, err
			}
			entries = append(entries, Entry{
				Type:      EntryFile,
				Path:      path,
				Timestamp: obj.LastModified,
				Size:      obj.Size,
			})
		}

		if page.NextMarker == "" {
			break
		}
		if page.NextMarker == marker {
			return nil, errs.WrapCode(errs.ErrKindBackendFailure, "InvalidMarker",
				fmt.Sprintf("listing %q did not advance past marker %q", directory, marker), nil)
		}
		marker = page.NextMarker
	}

	if !recursive {
		return entries, nil
	}
	for _, sub := range subdirs {
		nested, err := l.walk(ctx, sub, true, depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, nested...)
	}
	return entries, nil
}
