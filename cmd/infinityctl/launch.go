// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"infinityctl/internal/loader"
)

var (
	launchEnvFile string

	// launchCmd runs inside the container as the image entrypoint.
	launchCmd = &cobra.Command{
		Use:   "launch [-- worker-command...]",
		Short: "Load the baked environment and exec the worker process",
		Long: `Load the baked environment and exec the worker process.

launch is the image entrypoint. It reads the environment file baked into
the image, overlays it on the ambient environment (file values win), and
replaces itself with the worker process. A missing environment file is not
fatal: the worker then starts with the ambient environment unchanged.`,
		RunE: runLaunch,
	}
)

func init() {
	launchCmd.Flags().StringVar(&launchEnvFile, "env-file", "", "image-internal path of the baked environment file")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	envPath := launchEnvFile
	if envPath == "" {
		envPath = cfg.RuntimeEnvPath
	}

	argv := args
	if len(argv) == 0 {
		argv = cfg.WorkerCommand
	}
	if len(argv) == 0 {
		return fmt.Errorf("no worker command: pass one after -- or configure worker_command")
	}

	env, present, err := loader.Load(envPath, os.Environ())
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	if present {
		logger.Debug("loaded baked environment", "path", envPath)
	} else {
		logger.Warn("baked environment file missing, continuing with ambient environment", "path", envPath)
	}

	l := loader.New(logger)
	return l.Launch(argv, env)
}
