// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"infinityctl/internal/container"
	"infinityctl/internal/envfile"
	"infinityctl/internal/secret"
)

// CUDAVersionKey is the descriptor key naming the CUDA toolkit version.
// Its value is handed to the build as a build argument.
const CUDAVersionKey = "CUDA_VERSION"

// ErrInvalidRequest is the sentinel error wrapped by InvalidRequestError.
var ErrInvalidRequest = errors.New("invalid build request")

type (
	// Request carries everything needed for one build invocation.
	// It is composed per invocation and never persisted.
	Request struct {
		// Tag is the image tag to produce.
		Tag string
		// CUDAVersion is the toolkit version extracted from the descriptor.
		CUDAVersion string
		// Platform pins the target architecture.
		Platform string
		// BaseImage is the FROM image of the generated Dockerfile.
		BaseImage string
		// Secret optionally names the build credential; nil means none.
		Secret *secret.Reference
		// EnvFile is the host path of the environment descriptor.
		EnvFile string
		// RequirementsFile is the host path of the dependency manifest (optional).
		RequirementsFile string
		// SrcDir is the host path of worker source overrides (optional).
		SrcDir string
		// SetupScript is the host path of the external setup procedure.
		SetupScript string
		// BinaryPath is the host path of the infinityctl binary to bake (optional).
		BinaryPath string
		// WorkerCommand is the worker argv the image should eventually run.
		WorkerCommand []string
		// NoCache disables the engine's layer cache.
		NoCache bool
	}

	// InvalidRequestError is returned when a Request is missing a mandatory field.
	InvalidRequestError struct {
		Field  string
		Reason string
	}

	// Result is returned after a successful build.
	Result struct {
		// Tag is the produced image tag.
		Tag string
		// Engine is the engine that performed the build.
		Engine string
	}

	// Builder invokes the container engine for build requests.
	Builder struct {
		engine container.Engine
		logger *log.Logger
		stdout io.Writer
		stderr io.Writer
	}
)

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid build request: %s %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidRequest so callers can use errors.Is for programmatic detection.
func (e *InvalidRequestError) Unwrap() error { return ErrInvalidRequest }

// Validate returns an error if a mandatory field is missing.
func (r Request) Validate() error {
	switch {
	case r.Tag == "":
		return &InvalidRequestError{Field: "tag", Reason: "must not be empty"}
	case r.CUDAVersion == "":
		return &InvalidRequestError{Field: "CUDA version", Reason: "must not be empty"}
	case r.BaseImage == "":
		return &InvalidRequestError{Field: "base image", Reason: "must not be empty"}
	case r.EnvFile == "":
		return &InvalidRequestError{Field: "environment descriptor", Reason: "must not be empty"}
	case r.SetupScript == "":
		return &InvalidRequestError{Field: "setup script", Reason: "must not be empty"}
	default:
		return nil
	}
}

// NewBuilder creates a Builder that streams engine output to stdout/stderr.
func NewBuilder(engine container.Engine, logger *log.Logger, stdout, stderr io.Writer) *Builder {
	return &Builder{
		engine: engine,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
	}
}

// CUDAVersionFrom extracts the CUDA version from a descriptor file.
// It fails before any engine process is spawned, with
// envfile.ErrDescriptorNotFound or envfile.ErrKeyNotFound as the cause.
func CUDAVersionFrom(envFilePath string) (string, error) {
	d, err := envfile.Load(envFilePath)
	if err != nil {
		return "", err
	}
	return d.Require(CUDAVersionKey, envFilePath)
}

// Build stages the context, generates the Dockerfile, and runs exactly one
// engine build. The engine's output streams directly to the configured
// writers; failures are not retried, and partial engine state (stale layers)
// is left for the operator to inspect.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctxDir, layout, err := b.stageContext(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(ctxDir) }() // Best-effort temp cleanup

	secretName := "none"
	if req.Secret != nil {
		secretName = req.Secret.Name()
	}
	b.logger.Info("building worker image",
		"engine", b.engine.Name(),
		"tag", req.Tag,
		"cuda_version", req.CUDAVersion,
		"platform", req.Platform,
		"secret", secretName,
		"requirements", layout.hasRequirements,
		"src_overrides", layout.hasSrcDir,
		"launcher", layout.hasBinary,
	)

	opts := container.BuildOptions{
		ContextDir: ctxDir,
		Dockerfile: filepath.Join(ctxDir, "Dockerfile"),
		Tag:        req.Tag,
		Platform:   req.Platform,
		BuildArgs: []container.BuildArg{
			{Name: CUDAVersionKey, Value: req.CUDAVersion},
		},
		NoCache: req.NoCache,
		Stdout:  b.stdout,
		Stderr:  b.stderr,
	}
	if req.Secret != nil {
		opts.Secret = req.Secret.BuildFlag()
	}

	if err := b.engine.Build(ctx, opts); err != nil {
		return nil, err
	}

	b.logger.Info("worker image built", "tag", req.Tag)

	return &Result{Tag: req.Tag, Engine: b.engine.Name()}, nil
}

// stageContext materializes the temporary build context and reports which
// optional inputs made it in.
func (b *Builder) stageContext(req Request) (string, contextLayout, error) {
	var layout contextLayout

	ctxDir, err := os.MkdirTemp("", "infinityctl-build-")
	if err != nil {
		return "", layout, fmt.Errorf("create build context: %w", err)
	}

	cleanup := func() { _ = os.RemoveAll(ctxDir) }

	if err := copyFile(req.EnvFile, filepath.Join(ctxDir, ctxEnvFile)); err != nil {
		cleanup()
		return "", layout, fmt.Errorf("stage environment descriptor: %w", err)
	}
	if err := copyFile(req.SetupScript, filepath.Join(ctxDir, ctxSetupScript)); err != nil {
		cleanup()
		return "", layout, fmt.Errorf("stage setup script: %w", err)
	}

	if fileExists(req.RequirementsFile) {
		if err := copyFile(req.RequirementsFile, filepath.Join(ctxDir, ctxRequirementsFile)); err != nil {
			cleanup()
			return "", layout, fmt.Errorf("stage requirements file: %w", err)
		}
		layout.hasRequirements = true
	} else {
		b.logger.Debug("requirements file not found, building without it", "path", req.RequirementsFile)
	}

	if dirExists(req.SrcDir) {
		if err := copyDir(req.SrcDir, filepath.Join(ctxDir, ctxSrcDir)); err != nil {
			cleanup()
			return "", layout, fmt.Errorf("stage source overrides: %w", err)
		}
		layout.hasSrcDir = true
	} else {
		b.logger.Debug("source override dir not found, building without it", "path", req.SrcDir)
	}

	if req.BinaryPath != "" && fileExists(req.BinaryPath) {
		if err := copyFile(req.BinaryPath, filepath.Join(ctxDir, ctxBinary)); err != nil {
			cleanup()
			return "", layout, fmt.Errorf("stage launcher binary: %w", err)
		}
		layout.hasBinary = true
	}

	dockerfile := b.generateDockerfile(req, layout)
	if err := os.WriteFile(filepath.Join(ctxDir, "Dockerfile"), []byte(dockerfile), 0o600); err != nil {
		cleanup()
		return "", layout, fmt.Errorf("write Dockerfile: %w", err)
	}

	return ctxDir, layout, nil
}
