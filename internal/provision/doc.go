// SPDX-License-Identifier: MPL-2.0

// Package provision turns a build request into exactly one container build.
//
// It stages a temporary build context (environment descriptor, dependency
// manifest, source overrides, setup procedure, and optionally the infinityctl
// binary itself), generates the Dockerfile that drives the external setup
// procedure, and invokes the selected engine. The setup procedure contract is
// fixed: it accepts --cuda-version, --src-dir, --env-file and
// --requirements-file, and leaves the finalized environment file at the
// image-internal runtime path for the launch loader to consume.
package provision
