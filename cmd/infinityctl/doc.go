// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for infinityctl.
//
// This package implements the Cobra command hierarchy for the infinityctl
// CLI: the root command, the build command that provisions the worker
// image, the launch command that runs inside the container, and the doctor
// command for host diagnostics.
package cmd
