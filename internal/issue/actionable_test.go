// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such file or directory")
	err := NewErrorContext().
		WithOperation("load environment descriptor").
		WithResource("environment.env").
		WithSuggestion("Create environment.env next to your deployment sources").
		Wrap(cause).
		BuildError()

	want := "failed to load environment descriptor: environment.env: no such file or directory"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestActionableError_FormatIncludesSuggestions(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("build worker image").
		WithSuggestion("Check the Dockerfile for syntax errors").
		WithSuggestion("Verify the base image is reachable").
		BuildError()

	out := err.Format()
	for _, want := range []string{"Check the Dockerfile", "Verify the base image"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing suggestion %q:\n%s", want, out)
		}
	}
}
