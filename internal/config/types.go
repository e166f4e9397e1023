// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
)

const (
	// EngineAuto detects the container engine (podman preferred over docker).
	EngineAuto = "auto"
	// EnginePodman forces the Podman engine.
	EnginePodman = "podman"
	// EngineDocker forces the Docker engine.
	EngineDocker = "docker"
)

// ErrInvalidEngine is the sentinel error wrapped by InvalidEngineError.
var ErrInvalidEngine = errors.New("invalid engine selection")

// InvalidEngineError is returned when the engine setting is not one of
// auto, podman, or docker.
type InvalidEngineError struct {
	Value string
}

// Error implements the error interface.
func (e *InvalidEngineError) Error() string {
	return fmt.Sprintf("invalid engine %q (valid: auto, podman, docker)", e.Value)
}

// Unwrap returns ErrInvalidEngine so callers can use errors.Is for programmatic detection.
func (e *InvalidEngineError) Unwrap() error { return ErrInvalidEngine }

// validateEngine checks the engine selection value.
func validateEngine(v string) error {
	switch v {
	case EngineAuto, EnginePodman, EngineDocker:
		return nil
	default:
		return &InvalidEngineError{Value: v}
	}
}
