// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/apspack/apspack/internal/issue"
)

func TestNewServiceError_PanicsOnNilErr(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on nil Err, got none")
		}
		if msg, ok := r.(string); !ok || msg != "ServiceError: Err must not be nil" {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()

	newServiceError(nil, 0, "")
}

func TestServiceError_ErrorAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	svcErr := newServiceError(cause, issue.ArchiveWriteFailedId, "")

	if svcErr.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", svcErr.Error(), "boom")
	}
	if !errors.Is(svcErr, cause) {
		t.Error("errors.Is(svcErr, cause) = false")
	}
}

func TestRenderServiceError(t *testing.T) {
	t.Parallel()

	t.Run("styled message and catalog entry", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		svcErr := newServiceError(errors.New("x"), issue.MetadataMissingId, "styled\n")
		renderServiceError(&buf, svcErr, "notty")

		out := buf.String()
		if !strings.HasPrefix(out, "styled\n") {
			t.Errorf("styled message not written first:\n%s", out)
		}
		if !strings.Contains(out, "APP-META.xml") {
			t.Errorf("catalog entry not rendered:\n%s", out)
		}
	})

	t.Run("no issue id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		renderServiceError(&buf, newServiceError(errors.New("x"), 0, "only this"), "notty")
		if buf.String() != "only this" {
			t.Errorf("output = %q, want %q", buf.String(), "only this")
		}
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		renderServiceError(&buf, nil, "notty")
		if buf.Len() != 0 {
			t.Errorf("output = %q, want empty", buf.String())
		}
	})
}
