// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// PackageSuffix is appended to name-version-release to form the archive filename.
const PackageSuffix = ".app.zip"

const (
	// CompressionDeflate stores members deflated.
	CompressionDeflate Compression = "deflate"
	// CompressionStore stores members uncompressed.
	CompressionStore Compression = "store"
)

type (
	// Compression selects the ZIP method used for file members.
	Compression string

	// BuildOptions configures a single package build.
	BuildOptions struct {
		// SourceDir is the package source tree; APP-META.xml must sit at its root.
		// Empty means the current directory.
		SourceDir string
		// OutputDir receives the archive and is created if needed. Empty means
		// the current directory.
		OutputDir string
		// Compression defaults to CompressionDeflate.
		Compression Compression
		// Now supplies the packaged timestamp. Defaults to time.Now.
		Now func() time.Time
		// Logger receives progress messages. nil discards them.
		Logger *log.Logger
	}

	// BuildResult describes a finished package.
	BuildResult struct {
		ArchivePath string
		Metadata    Metadata
		Entries     []FileEntry
		// FileListIncluded reports whether APP-LIST.xml was written.
		FileListIncluded bool
		Packaged         time.Time
		// SizeBytes is the size of the archive file.
		SizeBytes int64
	}

	// member is a generated document written after the tree entries.
	member struct {
		name string
		data []byte
	}
)

// Method returns the ZIP method for c.
func (c Compression) Method() uint16 {
	if c == CompressionStore {
		return zip.Store
	}
	return zip.Deflate
}

// Validate returns an error unless c is empty or a known compression.
func (c Compression) Validate() error {
	switch c {
	case "", CompressionDeflate, CompressionStore:
		return nil
	default:
		return fmt.Errorf("unknown compression %q (expected %q or %q)", c, CompressionDeflate, CompressionStore)
	}
}

// ArchiveFilename returns <name>-<version>-<release>.app.zip.
func ArchiveFilename(m Metadata) string {
	return m.PackageBase() + PackageSuffix
}

// Build packages opts.SourceDir into opts.OutputDir.
//
// The archive is written to a temporary file next to its final path and
// renamed into place once complete, so a failed or canceled build never
// leaves a truncated package behind. Any existing package with the same
// name is replaced.
func Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if err := opts.Compression.Validate(); err != nil {
		return nil, err
	}

	sourceDir, err := sourceRoot(opts.SourceDir)
	if err != nil {
		return nil, err
	}
	outputDir, err := absDir(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	desc, err := LoadDescriptor(sourceDir)
	if err != nil {
		return nil, &BuildError{Stage: StageLoadMetadata, Err: err}
	}
	logger.Debug("loaded descriptor", "name", desc.Name, "version", desc.Version,
		"release", desc.Release, "schema", desc.SchemaVersion)

	entries, err := Enumerate(ctx, sourceDir, DefaultExclusions())
	if err != nil {
		return nil, &BuildError{Stage: StageEnumerate, Err: err}
	}
	logger.Debug("enumerated tree", "entries", len(entries))

	packaged := now().UTC().Truncate(time.Second)
	meta, err := desc.Stamp(packaged)
	if err != nil {
		return nil, &BuildError{Stage: StageGenerateManifest, Err: err}
	}
	members := []member{{name: MetaFileName, data: meta}}

	withList := RequiresFileList(desc.SchemaVersion)
	if dottedOrderDisagrees(desc.SchemaVersion) {
		logger.Warn("schema version orders differently as a dotted number; string order decides",
			"schema", desc.SchemaVersion, "threshold", FileListThreshold, "file_list", withList)
	}
	if withList {
		list, listErr := GenerateFileList(entries, meta)
		if listErr != nil {
			return nil, &BuildError{Stage: StageGenerateManifest, Err: listErr}
		}
		members = append(members, member{name: ListFileName, data: list})
	}
	logger.Info("file list gate", "schema", desc.SchemaVersion, "threshold", FileListThreshold, "file_list", withList)

	archivePath := filepath.Join(outputDir, ArchiveFilename(desc.Metadata))
	w := &archiveWriter{
		method:   opts.Compression.Method(),
		modified: packaged,
		logger:   logger,
	}
	size, err := writeAtomic(archivePath, func(f io.Writer) error {
		return w.write(ctx, f, entries, members)
	})
	if err != nil {
		if isCanceled(err) {
			logger.Warn("build canceled", "archive", archivePath)
		}
		return nil, &BuildError{Stage: StageWriteArchive, Err: err}
	}
	logger.Info("package built", "archive", archivePath, "entries", len(entries), "bytes", size)

	return &BuildResult{
		ArchivePath:      archivePath,
		Metadata:         desc.Metadata,
		Entries:          entries,
		FileListIncluded: withList,
		Packaged:         packaged,
		SizeBytes:        size,
	}, nil
}

func absDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

// sourceRoot resolves dir like absDir and then follows symlinks, so a linked
// source tree is walked rather than reported as a single link. A path that
// cannot be resolved is returned as is and fails later at descriptor load.
func sourceRoot(dir string) (string, error) {
	abs, err := absDir(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// writeAtomic creates path through a temporary file in the same directory.
// The temporary name ends with the final name, so it also matches the
// package exclusion pattern. On any error the temporary file is removed and
// path is left untouched.
func writeAtomic(path string, write func(io.Writer) error) (size int64, err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*-"+filepath.Base(path))
	if err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close() // best-effort; the write already failed
		}
		_ = os.Remove(tmpPath)
	}()

	if err = write(tmp); err != nil {
		return 0, err
	}
	if err = tmp.Sync(); err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}
	info, err := tmp.Stat()
	if err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return 0, &ArchiveWriteError{Path: path, Err: err}
	}
	return info.Size(), nil
}

// archiveWriter streams a package into a ZIP container.
type archiveWriter struct {
	method   uint16
	modified time.Time
	logger   *log.Logger
}

func (w *archiveWriter) write(ctx context.Context, out io.Writer, entries []FileEntry, members []member) error {
	zw := zip.NewWriter(out)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeEntry(zw, e); err != nil {
			return err
		}
		w.logger.Debug("wrote member", "name", e.MemberName())
	}

	for _, m := range members {
		hdr := &zip.FileHeader{
			Name:     m.name,
			Method:   w.method,
			Modified: w.modified,
		}
		hdr.SetMode(0o644)
		dst, err := zw.CreateHeader(hdr)
		if err != nil {
			return &ArchiveWriteError{Path: m.name, Err: err}
		}
		if _, err := dst.Write(m.data); err != nil {
			return &ArchiveWriteError{Path: m.name, Err: err}
		}
		w.logger.Debug("wrote member", "name", m.name, "bytes", len(m.data))
	}

	if err := zw.Close(); err != nil {
		return &ArchiveWriteError{Path: "central directory", Err: err}
	}
	return nil
}

func (w *archiveWriter) writeEntry(zw *zip.Writer, e FileEntry) error {
	info, err := os.Stat(e.AbsolutePath)
	if err != nil {
		return &FileUnreadableError{Path: e.AbsolutePath, Err: err}
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return &ArchiveWriteError{Path: e.MemberName(), Err: err}
	}
	hdr.Name = e.MemberName()

	if e.IsDir() {
		if _, err := zw.CreateHeader(hdr); err != nil {
			return &ArchiveWriteError{Path: hdr.Name, Err: err}
		}
		return nil
	}

	hdr.Method = w.method
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return &ArchiveWriteError{Path: hdr.Name, Err: err}
	}
	return copyVerified(dst, e)
}

// copyVerified streams a file into dst and checks it still matches the digest
// recorded during enumeration.
func copyVerified(dst io.Writer, e FileEntry) (err error) {
	src, err := os.Open(e.AbsolutePath)
	if err != nil {
		return &FileUnreadableError{Path: e.AbsolutePath, Err: err}
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = &FileUnreadableError{Path: e.AbsolutePath, Err: closeErr}
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) && pathErr.Path == e.AbsolutePath {
			return &FileUnreadableError{Path: e.AbsolutePath, Err: err}
		}
		return &ArchiveWriteError{Path: e.RelativePath, Err: err}
	}
	if n != e.Size || hex.EncodeToString(h.Sum(nil)) != e.ContentHash {
		return &FileUnreadableError{Path: e.AbsolutePath, Err: errContentChanged}
	}
	return nil
}
