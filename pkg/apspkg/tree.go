// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// KindFile is a regular file carrying a digest and size.
	KindFile EntryKind = iota
	// KindDirectory is a structural entry without content.
	KindDirectory
)

type (
	// EntryKind distinguishes files from directories.
	EntryKind int

	// FileEntry is one filesystem object included in a package.
	FileEntry struct {
		// RelativePath is slash-separated and relative to the source root. It is
		// both the archive member name and the exclusion key.
		RelativePath string `json:"name" toml:"name" yaml:"name"`
		// AbsolutePath is where the content is read from.
		AbsolutePath string    `json:"-" toml:"-" yaml:"-"`
		Kind         EntryKind `json:"kind" toml:"kind" yaml:"kind"`
		// ContentHash is the lower-case hex SHA-256 of the file; empty for directories.
		ContentHash string `json:"sha256,omitempty" toml:"sha256,omitempty" yaml:"sha256,omitempty"`
		// Size is the file length in bytes; zero for directories.
		Size int64 `json:"size" toml:"size" yaml:"size"`
	}
)

// String returns "file" or "directory".
func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// MarshalText encodes the kind by name for reports.
func (k EntryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsDir reports whether the entry is a directory.
func (e FileEntry) IsDir() bool { return e.Kind == KindDirectory }

// MemberName is the archive member name: directories get a trailing slash.
func (e FileEntry) MemberName() string {
	if e.IsDir() {
		return e.RelativePath + "/"
	}
	return e.RelativePath
}

// Enumerate walks root in lexical order and returns an entry for every
// directory and file below it that excl does not exclude. Directories come
// before their contents. Files are hashed as they are found; a file that
// cannot be read aborts the walk with a FileUnreadableError.
//
// Symbolic links are classified by their target. A link to a directory is
// recorded as a directory but not descended into. Excluded links are never
// resolved. root itself must not be a link; Build resolves it first.
func Enumerate(ctx context.Context, root string, excl ExclusionSet) ([]FileEntry, error) {
	var entries []FileEntry

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return &FileUnreadableError{Path: path, Err: err}
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if excl.Excludes(rel) {
			return nil
		}

		mode := d.Type()
		if mode&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				return &FileUnreadableError{Path: path, Err: statErr}
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			entries = append(entries, FileEntry{
				RelativePath: rel,
				AbsolutePath: path,
				Kind:         KindDirectory,
			})
		case mode.IsRegular():
			digest, size, hashErr := hashFile(path)
			if hashErr != nil {
				return &FileUnreadableError{Path: path, Err: hashErr}
			}
			entries = append(entries, FileEntry{
				RelativePath: rel,
				AbsolutePath: path,
				Kind:         KindFile,
				ContentHash:  digest,
				Size:         size,
			})
		default:
			return &FileUnreadableError{Path: path, Err: fmt.Errorf("unsupported file type %s", mode)}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}

// hashFile returns the hex SHA-256 and length of a file's full content.
func hashFile(path string) (digest string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	h := sha256.New()
	size, err = io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// digestBytes returns the hex SHA-256 of data.
func digestBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// isCanceled reports whether err came from context cancellation.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
