// SPDX-License-Identifier: MPL-2.0

// Package report records what a build produced: identity, gate decision and
// the digest of every archived file. Reports serialize as JSON, TOML or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apspack/apspack/pkg/apspkg"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v2"
)

const (
	// FormatJSON writes an indented JSON document.
	FormatJSON Format = "json"
	// FormatTOML writes a TOML document with indented tables.
	FormatTOML Format = "toml"
	// FormatYAML writes a YAML document.
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for formats other than json, toml and yaml.
var ErrUnknownFormat = errors.New("unknown report format")

type (
	// Format names a report serialization.
	Format string

	// Report is the serializable summary of one build.
	Report struct {
		BuildID     string          `json:"build_id" toml:"build_id" yaml:"build_id"`
		GeneratedAt string          `json:"generated_at" toml:"generated_at" yaml:"generated_at"`
		Archive     string          `json:"archive" toml:"archive" yaml:"archive"`
		SizeBytes   int64           `json:"size_bytes" toml:"size_bytes" yaml:"size_bytes"`
		Metadata    apspkg.Metadata `json:"metadata" toml:"metadata" yaml:"metadata"`
		// Packaged is the value stamped into APP-META.xml.
		Packaged         string  `json:"packaged" toml:"packaged" yaml:"packaged"`
		FileListIncluded bool    `json:"file_list_included" toml:"file_list_included" yaml:"file_list_included"`
		Entries          []Entry `json:"entries" toml:"entries" yaml:"entries"`
		// Verification is set when the archive was verified after the build.
		Verification *apspkg.VerifyResult `json:"verification,omitempty" toml:"verification,omitempty" yaml:"verification,omitempty"`
	}

	// Entry is one archived file or directory.
	Entry struct {
		Path   string `json:"path" toml:"path" yaml:"path"`
		Kind   string `json:"kind" toml:"kind" yaml:"kind"`
		SHA256 string `json:"sha256,omitempty" toml:"sha256,omitempty" yaml:"sha256,omitempty"`
		Size   int64  `json:"size" toml:"size" yaml:"size"`
	}
)

// Validate returns ErrUnknownFormat for anything but json, toml or yaml.
func (f Format) Validate() error {
	switch f {
	case FormatJSON, FormatTOML, FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w %q (expected json, toml or yaml)", ErrUnknownFormat, string(f))
	}
}

// FormatFor picks the format from path's extension (.json, .toml, .yaml,
// .yml) and falls back to fallback for anything else.
func FormatFor(path string, fallback Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return fallback
	}
}

// New summarizes res under a fresh build ID. generated is the wall-clock
// time the report was made.
func New(res *apspkg.BuildResult, generated time.Time) *Report {
	r := &Report{
		BuildID:          uuid.NewString(),
		GeneratedAt:      generated.UTC().Format(time.RFC3339),
		Archive:          res.ArchivePath,
		SizeBytes:        res.SizeBytes,
		Metadata:         res.Metadata,
		Packaged:         apspkg.PackagedValue(res.Packaged),
		FileListIncluded: res.FileListIncluded,
		Entries:          make([]Entry, 0, len(res.Entries)),
	}
	for _, e := range res.Entries {
		r.Entries = append(r.Entries, Entry{
			Path:   e.MemberName(),
			Kind:   e.Kind.String(),
			SHA256: e.ContentHash,
			Size:   e.Size,
		})
	}
	return r
}

// Encode writes r to w in format f.
func (r *Report) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return enc.Encode(r)
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return f.Validate()
	}
}

// WriteFile encodes r into path, creating parent directories.
func (r *Report) WriteFile(path string, f Format) (err error) {
	if err = f.Validate(); err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()

	if err = r.Encode(out, f); err != nil {
		return fmt.Errorf("encode %s report: %w", f, err)
	}
	return nil
}
