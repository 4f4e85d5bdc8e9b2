// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the CLI and the config
// layer. It imports only the standard library.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitOK means the command did what was asked.
	ExitOK ExitCode = 0
	// ExitBuildFailed means a package could not be built or an archive could
	// not be read.
	ExitBuildFailed ExitCode = 1
	// ExitUsage means the command line or configuration was invalid.
	ExitUsage ExitCode = 2
	// ExitVerifyMismatch means an archive was readable but its contents do
	// not match APP-LIST.xml.
	ExitVerifyMismatch ExitCode = 3
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned for codes outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if c is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is ExitOK.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// String returns the decimal form of c.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
