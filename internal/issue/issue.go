// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"fmt"

	"github.com/charmbracelet/glamour"

	"infinityctl/pkg/platform"
)

// Id identifies a known issue class with a dedicated remediation page.
type Id int

const (
	// ContainerEngineNotFoundId is reported when neither podman nor docker
	// resolves on the executable search path.
	ContainerEngineNotFoundId Id = iota + 1
)

// Issue is a renderable remediation page for a known failure class.
type Issue struct {
	id    Id
	mdMsg string
}

// Id returns the issue identifier.
func (i *Issue) Id() Id { return i.id }

// MarkdownMsg returns the raw markdown text of the page.
func (i *Issue) MarkdownMsg() string { return i.mdMsg }

// Render renders the remediation page for terminal display.
func (i *Issue) Render() (string, error) {
	return render(i.mdMsg, "dark")
}

var render = glamour.Render

// ContainerEngineNotFound builds the remediation page for the given
// operating system (a runtime.GOOS value). The page names both supported
// engines and gives platform-specific install instructions.
func ContainerEngineNotFound(goos string) *Issue {
	var install string
	switch goos {
	case platform.Darwin:
		install = "" +
			"~~~\n" +
			"$ brew install podman && podman machine init && podman machine start\n" +
			"~~~\n" +
			"or install Docker Desktop from https://docs.docker.com/desktop/setup/install/mac-install/"
	case platform.Windows:
		install = "" +
			"~~~\n" +
			"> winget install RedHat.Podman\n" +
			"~~~\n" +
			"or install Docker Desktop from https://docs.docker.com/desktop/setup/install/windows-install/"
	default: // Linux and others
		install = "" +
			"~~~\n" +
			"$ sudo apt-get install podman    # Debian/Ubuntu\n" +
			"$ sudo dnf install podman        # Fedora/RHEL\n" +
			"~~~\n" +
			"or follow https://docs.docker.com/engine/install/ for Docker Engine"
	}

	md := fmt.Sprintf(`
# No container engine found!

Building the worker image requires **podman** or **docker** on your PATH,
and neither could be found.

## Install one of them

%s

Once installed, verify with `+"`podman version`"+` or `+"`docker version`"+` and re-run the build.
`, install)

	return &Issue{
		id:    ContainerEngineNotFoundId,
		mdMsg: md,
	}
}
