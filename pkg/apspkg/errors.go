// SPDX-License-Identifier: MPL-2.0

package apspkg

import (
	"errors"
	"fmt"
	"strings"
)

// Build stages reported by BuildError.
const (
	StageLoadMetadata     Stage = "load-metadata"
	StageEnumerate        Stage = "enumerate"
	StageGenerateManifest Stage = "generate-manifest"
	StageWriteArchive     Stage = "write-archive"
)

var (
	// ErrMetadataMissing is returned when APP-META.xml does not exist or cannot be read.
	ErrMetadataMissing = errors.New("package metadata missing")
	// ErrMetadataMalformed is returned when APP-META.xml is not well-formed XML.
	ErrMetadataMalformed = errors.New("package metadata malformed")
	// ErrMetadataIncomplete is returned when a required identity field is empty.
	ErrMetadataIncomplete = errors.New("package metadata incomplete")
	// ErrFileUnreadable is returned when a source file cannot be read while hashing or archiving.
	ErrFileUnreadable = errors.New("file unreadable")
	// ErrSerialization is returned when a generated document cannot be encoded.
	ErrSerialization = errors.New("serialization failed")
	// ErrArchiveWrite is returned when the output archive cannot be written or moved into place.
	ErrArchiveWrite = errors.New("archive write failed")
	// ErrArchiveInvalid is returned by Verify when an archive cannot be read as a package.
	ErrArchiveInvalid = errors.New("invalid package archive")

	// errContentChanged marks a file whose bytes differ from the digest taken at enumeration.
	errContentChanged = errors.New("content changed since it was hashed")
)

type (
	// Stage names the pipeline step a BuildError originated from.
	Stage string

	// BuildError attaches the failing stage to an error surfaced by Build.
	// It unwraps to the stage error unchanged.
	BuildError struct {
		Stage Stage
		Err   error
	}

	// MetadataMissingError is returned when the descriptor cannot be read.
	MetadataMissingError struct {
		Path string
		Err  error
	}

	// MetadataMalformedError is returned when the descriptor cannot be parsed.
	MetadataMalformedError struct {
		Path string
		Err  error
	}

	// MetadataIncompleteError lists the identity fields that were empty after parsing.
	MetadataIncompleteError struct {
		Path    string
		Missing []string
	}

	// FileUnreadableError is returned when a file disappears or cannot be read.
	FileUnreadableError struct {
		Path string
		Err  error
	}

	// SerializationError is returned when a generated document cannot be encoded.
	SerializationError struct {
		Document string
		Err      error
	}

	// ArchiveWriteError is returned when writing or finalizing the archive fails.
	ArchiveWriteError struct {
		Path string
		Err  error
	}

	// ArchiveInvalidError is returned when an archive is not a readable package.
	ArchiveInvalidError struct {
		Path   string
		Reason string
		Err    error
	}
)

func (e *BuildError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

// Unwrap returns the stage error.
func (e *BuildError) Unwrap() error { return e.Err }

func (e *MetadataMissingError) Error() string {
	return fmt.Sprintf("package metadata missing: %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrMetadataMissing and the underlying cause.
func (e *MetadataMissingError) Unwrap() []error { return []error{ErrMetadataMissing, e.Err} }

func (e *MetadataMalformedError) Error() string {
	return fmt.Sprintf("package metadata malformed: %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrMetadataMalformed and the underlying cause.
func (e *MetadataMalformedError) Unwrap() []error { return []error{ErrMetadataMalformed, e.Err} }

func (e *MetadataIncompleteError) Error() string {
	return fmt.Sprintf("package metadata incomplete: %s: missing %s", e.Path, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrMetadataIncomplete for errors.Is() compatibility.
func (e *MetadataIncompleteError) Unwrap() error { return ErrMetadataIncomplete }

func (e *FileUnreadableError) Error() string {
	return fmt.Sprintf("file unreadable: %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrFileUnreadable and the underlying cause.
func (e *FileUnreadableError) Unwrap() []error { return []error{ErrFileUnreadable, e.Err} }

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Document, e.Err)
}

// Unwrap returns both ErrSerialization and the underlying cause.
func (e *SerializationError) Unwrap() []error { return []error{ErrSerialization, e.Err} }

func (e *ArchiveWriteError) Error() string {
	return fmt.Sprintf("write archive %s: %v", e.Path, e.Err)
}

// Unwrap returns both ErrArchiveWrite and the underlying cause.
func (e *ArchiveWriteError) Unwrap() []error { return []error{ErrArchiveWrite, e.Err} }

func (e *ArchiveInvalidError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid package archive %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid package archive %s: %s", e.Path, e.Reason)
}

// Unwrap returns both ErrArchiveInvalid and the underlying cause, if any.
func (e *ArchiveInvalidError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrArchiveInvalid}
	}
	return []error{ErrArchiveInvalid, e.Err}
}
