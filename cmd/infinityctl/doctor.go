// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"infinityctl/internal/container"
	"infinityctl/internal/envfile"
	"infinityctl/internal/issue"
	"infinityctl/internal/provision"
	"infinityctl/internal/secret"
)

// doctorCmd checks host prerequisites for a build.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check host prerequisites for building worker images",
	Long: `Check host prerequisites for building worker images.

doctor probes for a container engine, verifies the environment descriptor
and its CUDA version entry, and reports whether the build credential is
present. It never prints credential values.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	healthy := true

	engineType := container.Detect()
	if engineType == container.EngineTypeNone {
		fmt.Printf("%s container engine: none found\n", ErrorStyle.Render("✗"))
		page, renderErr := issue.ContainerEngineNotFound(runtime.GOOS).Render()
		if renderErr == nil {
			fmt.Fprint(os.Stderr, page)
		}
		healthy = false
	} else {
		eng, err := container.NewEngine(engineType)
		if err != nil {
			return err
		}
		version, err := eng.Version(cmd.Context())
		if err != nil {
			fmt.Printf("%s container engine: %s found, but not responding\n", WarningStyle.Render("!"), eng.Name())
		} else {
			fmt.Printf("%s container engine: %s %s\n", SuccessStyle.Render("✓"), eng.Name(), version)
		}
	}

	cudaVersion, err := provision.CUDAVersionFrom(cfg.EnvFile)
	switch {
	case err == nil:
		fmt.Printf("%s environment descriptor: %s (CUDA %s)\n", SuccessStyle.Render("✓"), cfg.EnvFile, cudaVersion)
	case errors.Is(err, envfile.ErrDescriptorNotFound):
		fmt.Printf("%s environment descriptor: %s not found\n", ErrorStyle.Render("✗"), cfg.EnvFile)
		healthy = false
	default:
		fmt.Printf("%s environment descriptor: %v\n", ErrorStyle.Render("✗"), err)
		healthy = false
	}

	if sec := secret.Resolve(cfg.SecretName); sec != nil {
		fmt.Printf("%s build credential: %s is set\n", SuccessStyle.Render("✓"), sec.Name())
	} else {
		fmt.Printf("%s build credential: %s not set (build proceeds without it)\n", WarningStyle.Render("!"), cfg.SecretName)
	}

	fmt.Println(SubtitleStyle.Render("Resolved configuration:"))
	fmt.Printf("  tag:        %s\n", cfg.ImageTag)
	fmt.Printf("  platform:   %s\n", cfg.Platform)
	fmt.Printf("  engine:     %s\n", cfg.Engine)
	fmt.Printf("  base image: %s\n", cfg.BaseImage)

	if !healthy {
		return &ExitError{Code: 1, Err: fmt.Errorf("host is not ready to build")}
	}
	fmt.Println(SubtitleStyle.Render("All checks passed."))
	return nil
}
