// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidFilesystemPath is the sentinel error wrapped by InvalidFilesystemPathError.
var ErrInvalidFilesystemPath = errors.New("invalid filesystem path")

type (
	// FilesystemPath is a source or output directory as given on the command
	// line or in config. It must not be blank.
	FilesystemPath string

	// InvalidFilesystemPathError is returned for blank paths.
	InvalidFilesystemPathError struct {
		Value FilesystemPath
	}
)

func (p FilesystemPath) String() string { return string(p) }

// Validate returns an error if p is empty or whitespace-only.
func (p FilesystemPath) Validate() error {
	if strings.TrimSpace(string(p)) == "" {
		return &InvalidFilesystemPathError{Value: p}
	}
	return nil
}

// Resolve validates p and returns its cleaned absolute form. A leading "~/"
// is expanded against home when home is non-empty.
func (p FilesystemPath) Resolve(home string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s := string(p)
	if home != "" && (s == "~" || strings.HasPrefix(s, "~/")) {
		s = filepath.Join(home, strings.TrimPrefix(s[1:], "/"))
	}
	return filepath.Abs(s)
}

func (e *InvalidFilesystemPathError) Error() string {
	return fmt.Sprintf("invalid filesystem path %q: must be non-empty", e.Value)
}

func (e *InvalidFilesystemPathError) Unwrap() error { return ErrInvalidFilesystemPath }
