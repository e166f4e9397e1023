// SPDX-License-Identifier: MPL-2.0

//go:build windows

package loader

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no execve; the closest equivalent is spawning the worker and
// exiting with its status once it terminates.
func defaultExec(argv0 string, argv []string, env []string) error {
	cmd := exec.Command(argv0, argv[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
