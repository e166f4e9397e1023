// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"infinityctl/pkg/types"
)

// DefaultPlatform is the single architecture every build is pinned to.
// GPU inference images are amd64-only; pinning avoids multi-arch drift
// between hosts with different native architectures.
const DefaultPlatform = "linux/amd64"

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BuildArg is a named build-time variable. Build arguments are kept as an
	// ordered slice so composed argument vectors are deterministic.
	BuildArg struct {
		Name  string
		Value string
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory.
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir).
		Dockerfile string
		// Tag is the image tag.
		Tag string
		// Platform pins the target platform (DefaultPlatform when empty).
		Platform string
		// BuildArgs are build-time variables in composition order.
		BuildArgs []BuildArg
		// Secret is the engine --secret flag value (e.g. "id=HF_TOKEN,env=HF_TOKEN").
		// Empty means no secret mount. Never a credential value.
		Secret string
		// NoCache disables the build cache.
		NoCache bool
		// Stdout is where the engine's build output streams.
		Stdout io.Writer
		// Stderr is where the engine's build errors stream.
		Stderr io.Writer
	}

	// BaseCLIEngine provides the common implementation for CLI-based container
	// engines. Docker and Podman engines embed this struct; engine-specific
	// behavior is injected as extra build flags and per-command env overrides.
	BaseCLIEngine struct {
		name            string
		binaryPath      string // resolved via exec.LookPath at construction
		execCommand     ExecCommandFunc
		extraBuildFlags []string          // engine-specific flags inserted after "build"
		cmdEnvOverrides map[string]string // per-command env var overrides (e.g. DOCKER_BUILDKIT)
	}
)

// --- Option Functions ---

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// WithExtraBuildFlags sets engine-specific flags inserted right after the
// "build" verb (e.g. Podman's --format docker --layers).
func WithExtraBuildFlags(flags ...string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.extraBuildFlags = flags
	}
}

// WithCmdEnvOverride adds an environment variable override applied to every
// exec.Cmd created by this engine. Used by Docker to enable BuildKit.
func WithCmdEnvOverride(key, value string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		if e.cmdEnvOverrides == nil {
			e.cmdEnvOverrides = make(map[string]string)
		}
		e.cmdEnvOverrides[key] = value
	}
}

// --- Constructor ---

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Accessor Methods ---

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// Available reports whether the engine binary resolved on the search path.
func (e *BaseCLIEngine) Available() bool {
	return e.binaryPath != ""
}

// --- Argument Builders ---

// BuildCmdArgs constructs arguments for a container build command.
// Returns arguments in the order expected by docker/podman build.
//
// Generated command: <binary> build [engine flags] [options] <context>
func (e *BaseCLIEngine) BuildCmdArgs(opts BuildOptions) []string {
	args := []string{"build"}

	args = append(args, e.extraBuildFlags...)

	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}

	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}

	platform := opts.Platform
	if platform == "" {
		platform = DefaultPlatform
	}
	args = append(args, "--platform", platform)

	for _, ba := range opts.BuildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", ba.Name, ba.Value))
	}

	if opts.Secret != "" {
		args = append(args, "--secret", opts.Secret)
	}

	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	args = append(args, opts.ContextDir)

	return args
}

// --- Command Execution ---

// CreateCommand creates an exec.Cmd for the given arguments.
// Engine-level env overrides are applied automatically.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := e.execCommand(ctx, e.binaryPath, args...)
	if len(e.cmdEnvOverrides) > 0 {
		// exec.Cmd.Env being nil means "inherit everything", but once set to
		// a non-nil slice only the listed vars reach the child, so the parent
		// environment is carried over before the overrides.
		cmd.Env = os.Environ()
		for k, v := range e.cmdEnvOverrides {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// Build builds an image. The engine's stdout/stderr stream directly to the
// configured writers; a non-zero exit is wrapped in BuildFailedError with
// the subprocess exit code preserved when it is a real POSIX status.
// Signal-terminated engines report -1, which collapses to 1.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	args := e.BuildCmdArgs(opts)

	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		code := types.ExitCode(1)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = types.ExitCode(exitErr.ExitCode())
			if code.Validate() != nil || code.IsSuccess() {
				code = 1
			}
		}
		return &BuildFailedError{
			Engine:   e.name,
			Tag:      opts.Tag,
			ExitCode: code,
			Cause:    err,
		}
	}

	return nil
}
