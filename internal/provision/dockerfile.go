// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"fmt"
	"strings"
)

// Staged context entry names. The Dockerfile and the staging step must agree
// on these, so they are fixed here rather than derived from host paths.
const (
	ctxEnvFile          = "environment.env"
	ctxRequirementsFile = "requirements.txt"
	ctxSrcDir           = "src"
	ctxSetupScript      = "setup_environment.py"
	ctxBinary           = "infinityctl"

	// imageBinaryPath is where the baked infinityctl binary lives in the image.
	imageBinaryPath = "/usr/local/bin/infinityctl"
)

// contextLayout records which optional inputs were staged into the build
// context, so the generated Dockerfile only COPYs what is actually there.
type contextLayout struct {
	hasRequirements bool
	hasSrcDir       bool
	hasBinary       bool
}

// generateDockerfile creates the Dockerfile content for the worker image.
// The CUDA version is a build argument, never baked ambiently; the secret,
// when present, is exposed to the setup procedure only through a build-time
// secret mount and never persists into a layer.
func (b *Builder) generateDockerfile(req Request, layout contextLayout) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "FROM %s\n\n", req.BaseImage)
	sb.WriteString("ARG CUDA_VERSION\n\n")
	sb.WriteString("WORKDIR /app\n\n")

	fmt.Fprintf(&sb, "COPY %s %s\n", ctxEnvFile, ctxEnvFile)
	fmt.Fprintf(&sb, "COPY %s %s\n", ctxSetupScript, ctxSetupScript)
	if layout.hasRequirements {
		fmt.Fprintf(&sb, "COPY %s %s\n", ctxRequirementsFile, ctxRequirementsFile)
	}
	if layout.hasSrcDir {
		fmt.Fprintf(&sb, "COPY %s/ %s/\n", ctxSrcDir, ctxSrcDir)
	}
	if layout.hasBinary {
		fmt.Fprintf(&sb, "COPY %s %s\n", ctxBinary, imageBinaryPath)
		fmt.Fprintf(&sb, "RUN chmod +x %s\n", imageBinaryPath)
	}
	sb.WriteString("\n")

	// Setup procedure CLI contract: --cuda-version, --src-dir, --env-file,
	// --requirements-file. It installs dependencies for the given CUDA
	// version and leaves the finalized environment file at the runtime path.
	sb.WriteString("RUN ")
	if req.Secret != nil {
		fmt.Fprintf(&sb, "--mount=type=secret,id=%s ", req.Secret.Name())
	}
	fmt.Fprintf(&sb, "python3 %s --cuda-version \"${CUDA_VERSION}\" --src-dir ./%s --env-file %s --requirements-file %s\n\n",
		ctxSetupScript, ctxSrcDir, ctxEnvFile, ctxRequirementsFile)

	sb.WriteString("ENTRYPOINT ")
	sb.WriteString(renderExecForm(b.entrypoint(req, layout)))
	sb.WriteString("\n")

	return sb.String()
}

// entrypoint returns the image entrypoint argv. When the infinityctl binary
// is baked in, the worker starts behind the launch loader so the baked
// environment file is exported first; otherwise the worker runs directly and
// all variables must be provisioned externally.
func (b *Builder) entrypoint(req Request, layout contextLayout) []string {
	if !layout.hasBinary {
		return req.WorkerCommand
	}
	argv := []string{imageBinaryPath, "launch", "--"}
	return append(argv, req.WorkerCommand...)
}

// renderExecForm renders an argv as a Dockerfile JSON-array exec form.
func renderExecForm(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = fmt.Sprintf("%q", a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
