// SPDX-License-Identifier: MPL-2.0

//go:build unix

package loader

import "syscall"

func defaultExec(argv0 string, argv []string, env []string) error {
	return syscall.Exec(argv0, argv, env)
}
