// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestContainerEngineNotFound_PerPlatformInstructions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		goos string
		want []string
	}{
		{goos: "linux", want: []string{"apt-get install podman", "dnf install podman"}},
		{goos: "darwin", want: []string{"brew install podman", "Docker Desktop"}},
		{goos: "windows", want: []string{"winget install RedHat.Podman", "Docker Desktop"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			t.Parallel()
			iss := ContainerEngineNotFound(tt.goos)
			if iss.Id() != ContainerEngineNotFoundId {
				t.Errorf("Id() = %d, want ContainerEngineNotFoundId", iss.Id())
			}
			md := iss.MarkdownMsg()
			for _, w := range tt.want {
				if !strings.Contains(md, w) {
					t.Errorf("page for %s missing %q", tt.goos, w)
				}
			}
			for _, engine := range []string{"podman", "docker"} {
				if !strings.Contains(strings.ToLower(md), engine) {
					t.Errorf("page for %s does not mention %s", tt.goos, engine)
				}
			}
		})
	}
}
