// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os/exec"

	"infinityctl/pkg/types"
)

// EngineType identifies the container engine type.
type EngineType string

const (
	// EngineTypePodman selects the Podman CLI engine.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker selects the Docker CLI engine.
	EngineTypeDocker EngineType = "docker"
	// EngineTypeNone means no engine binary resolves on the search path.
	// It is a terminal state for callers, never a fallback.
	EngineTypeNone EngineType = "none"
)

// Engine defines the operations the build orchestrator needs from a
// container engine.
type Engine interface {
	// Name returns the engine name (docker or podman).
	Name() string
	// Available checks if the engine is available on the system.
	Available() bool
	// Version returns the engine version.
	Version(ctx context.Context) (string, error)
	// BuildCmdArgs composes the argument vector for a build without executing it.
	BuildCmdArgs(opts BuildOptions) []string
	// Build builds an image. Exactly one engine process per call, no retry.
	Build(ctx context.Context, opts BuildOptions) error
}

// LookPathFunc resolves a binary name on the executable search path,
// exec.LookPath-style. Tests inject fakes to simulate host configurations.
type LookPathFunc func(file string) (string, error)

// ErrNoEngine is the sentinel error wrapped by NoEngineError.
var ErrNoEngine = fmt.Errorf("no container engine found")

// NoEngineError is returned when neither podman nor docker resolves on the
// executable search path.
type NoEngineError struct{}

// Error implements the error interface.
func (e *NoEngineError) Error() string {
	return "no container engine found: neither podman nor docker is on PATH"
}

// Unwrap returns ErrNoEngine so callers can use errors.Is for programmatic detection.
func (e *NoEngineError) Unwrap() error { return ErrNoEngine }

// BuildFailedError is returned when the engine's build subprocess exits
// non-zero. The exit code is preserved verbatim so the CLI can propagate it;
// the build log itself streams untouched to the configured writers.
type BuildFailedError struct {
	Engine   string
	Tag      string
	ExitCode types.ExitCode
	Cause    error
}

// Error implements the error interface.
func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("%s build of %q failed with exit code %d", e.Engine, e.Tag, e.ExitCode)
}

// Unwrap returns the underlying exec error.
func (e *BuildFailedError) Unwrap() error { return e.Cause }

// Detect probes the host's executable search path for a container engine.
// Podman is preferred over Docker; the first match wins. Detection has no
// side effects and cannot fail: when neither binary resolves it returns
// EngineTypeNone, which callers must treat as a fatal configuration state.
func Detect() EngineType {
	return DetectWith(exec.LookPath)
}

// DetectWith is Detect against an injected path lookup.
func DetectWith(lookPath LookPathFunc) EngineType {
	for _, t := range []EngineType{EngineTypePodman, EngineTypeDocker} {
		if _, err := lookPath(string(t)); err == nil {
			return t
		}
	}
	return EngineTypeNone
}

// NewEngine constructs the concrete engine for the given type.
// EngineTypeNone (and any unknown value) yields a NoEngineError.
func NewEngine(t EngineType, opts ...BaseCLIEngineOption) (Engine, error) {
	switch t {
	case EngineTypePodman:
		return NewPodmanEngine(opts...), nil
	case EngineTypeDocker:
		return NewDockerEngine(opts...), nil
	default:
		return nil, &NoEngineError{}
	}
}
