// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/apspack/apspack/internal/issue"
)

// ServiceError attaches an issue catalog entry to an error. The CLI renders
// the entry's guidance after the error itself. Create it with
// newServiceError.
type ServiceError struct {
	Err     error
	IssueID issue.Id
	// StyledMessage is printed before the catalog entry when set.
	StyledMessage string
}

func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID, StyledMessage: styledMessage}
}

func (e *ServiceError) Error() string { return e.Err.Error() }

func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError writes the styled message and the rendered catalog
// entry. If glamour fails, the raw Markdown is written instead.
func renderServiceError(w io.Writer, svcErr *ServiceError, glamourStyle string) {
	if svcErr == nil {
		return
	}
	if svcErr.StyledMessage != "" {
		fmt.Fprint(w, svcErr.StyledMessage)
	}
	if svcErr.IssueID == 0 {
		return
	}
	entry := issue.Get(svcErr.IssueID)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(glamourStyle)
	if err != nil {
		fmt.Fprintln(w, string(entry.MarkdownMsg()))
		return
	}
	fmt.Fprint(w, rendered)
}
