// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction layer for container engines
// (Docker/Podman) driven through their command-line interfaces.
//
// Engine detection is a pure probe of the executable search path: it returns
// exactly one EngineType and never fails. Build invocation composes one
// engine-specific argument vector per request and executes it without retry;
// the engine's own progress output streams directly to the operator.
package container
