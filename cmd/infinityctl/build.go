// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"infinityctl/internal/config"
	"infinityctl/internal/container"
	"infinityctl/internal/issue"
	"infinityctl/internal/provision"
	"infinityctl/internal/secret"
)

var (
	buildTag              string
	buildEnvFile          string
	buildRequirementsFile string
	buildSrcDir           string
	buildEngine           string
	buildBaseImage        string
	buildPlatform         string
	buildSecretName       string
	buildNoCache          bool

	// buildCmd provisions the worker image.
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the provisioned worker container image",
		Long: `Build the provisioned worker container image.

The build reads the CUDA toolkit version from the environment descriptor,
detects a container engine (podman preferred over docker), and drives a
single platform-pinned image build. An optional credential named by the
configured secret variable is mounted as a build secret; its value never
appears in the build command line or in any log output.`,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVarP(&buildTag, "tag", "t", "", "image tag to produce")
	buildCmd.Flags().StringVar(&buildEnvFile, "env-file", "", "environment descriptor path")
	buildCmd.Flags().StringVar(&buildRequirementsFile, "requirements-file", "", "dependency manifest path")
	buildCmd.Flags().StringVar(&buildSrcDir, "src-dir", "", "worker source override directory")
	buildCmd.Flags().StringVar(&buildEngine, "engine", "", "container engine (auto, podman, docker)")
	buildCmd.Flags().StringVar(&buildBaseImage, "base-image", "", "base image for the build")
	buildCmd.Flags().StringVar(&buildPlatform, "platform", "", "target platform")
	buildCmd.Flags().StringVar(&buildSecretName, "secret-name", "", "ambient variable holding the build credential")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", false, "disable the engine layer cache")
}

// buildSettings is the effective build configuration after flag overrides.
type buildSettings struct {
	Tag              string
	EnvFile          string
	RequirementsFile string
	SrcDir           string
	Engine           string
	BaseImage        string
	Platform         string
	SecretName       string
	SetupScript      string
	WorkerCommand    []string
	NoCache          bool
}

// buildFlagValues captures the current flag state.
type buildFlagValues struct {
	Tag              string
	EnvFile          string
	RequirementsFile string
	SrcDir           string
	Engine           string
	BaseImage        string
	Platform         string
	SecretName       string
	NoCache          bool
}

// mergeBuildSettings layers flag values over the loaded configuration.
// An empty flag means "not set" and leaves the configured value in place.
func mergeBuildSettings(c *config.Config, fl buildFlagValues) buildSettings {
	s := buildSettings{
		Tag:              c.ImageTag,
		EnvFile:          c.EnvFile,
		RequirementsFile: c.RequirementsFile,
		SrcDir:           c.SrcDir,
		Engine:           c.Engine,
		BaseImage:        c.BaseImage,
		Platform:         c.Platform,
		SecretName:       c.SecretName,
		SetupScript:      c.SetupScript,
		WorkerCommand:    c.WorkerCommand,
		NoCache:          fl.NoCache,
	}
	if fl.Tag != "" {
		s.Tag = fl.Tag
	}
	if fl.EnvFile != "" {
		s.EnvFile = fl.EnvFile
	}
	if fl.RequirementsFile != "" {
		s.RequirementsFile = fl.RequirementsFile
	}
	if fl.SrcDir != "" {
		s.SrcDir = fl.SrcDir
	}
	if fl.Engine != "" {
		s.Engine = fl.Engine
	}
	if fl.BaseImage != "" {
		s.BaseImage = fl.BaseImage
	}
	if fl.Platform != "" {
		s.Platform = fl.Platform
	}
	if fl.SecretName != "" {
		s.SecretName = fl.SecretName
	}
	return s
}

// selectEngineType maps the engine setting to a concrete engine type.
// "auto" probes the host; a forced selection is taken as-is and fails later
// at build time if the binary is missing.
func selectEngineType(setting string) (container.EngineType, error) {
	switch setting {
	case config.EngineAuto:
		return container.Detect(), nil
	case config.EnginePodman:
		return container.EngineTypePodman, nil
	case config.EngineDocker:
		return container.EngineTypeDocker, nil
	default:
		return container.EngineTypeNone, &config.InvalidEngineError{Value: setting}
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	settings := mergeBuildSettings(cfg, buildFlagValues{
		Tag:              buildTag,
		EnvFile:          buildEnvFile,
		RequirementsFile: buildRequirementsFile,
		SrcDir:           buildSrcDir,
		Engine:           buildEngine,
		BaseImage:        buildBaseImage,
		Platform:         buildPlatform,
		SecretName:       buildSecretName,
		NoCache:          buildNoCache,
	})

	// The descriptor gates everything else: no CUDA version, no build.
	cudaVersion, err := provision.CUDAVersionFrom(settings.EnvFile)
	if err != nil {
		return err
	}
	logger.Debug("resolved toolkit version", "cuda_version", cudaVersion, "env_file", settings.EnvFile)

	engineType, err := selectEngineType(settings.Engine)
	if err != nil {
		return err
	}
	eng, err := container.NewEngine(engineType)
	if err != nil {
		renderEngineNotFound()
		return &ExitError{Code: 1, Err: err}
	}
	logger.Debug("using container engine", "engine", eng.Name())

	// Name-only resolution: the credential value stays in the process
	// environment and reaches the engine through the secret mount.
	sec := secret.Resolve(settings.SecretName)
	if sec == nil {
		logger.Debug("no build credential present", "secret_name", settings.SecretName)
	}

	// Baking the orchestrator into the image is best-effort: without it the
	// entrypoint runs the worker directly and skips the env loading step.
	binaryPath, err := os.Executable()
	if err != nil {
		logger.Warn("cannot locate own binary, image will launch the worker directly", "error", err)
		binaryPath = ""
	}

	builder := provision.NewBuilder(eng, logger, os.Stdout, os.Stderr)
	result, err := builder.Build(cmd.Context(), provision.Request{
		Tag:              settings.Tag,
		CUDAVersion:      cudaVersion,
		Platform:         settings.Platform,
		BaseImage:        settings.BaseImage,
		Secret:           sec,
		EnvFile:          settings.EnvFile,
		RequirementsFile: settings.RequirementsFile,
		SrcDir:           settings.SrcDir,
		SetupScript:      settings.SetupScript,
		BinaryPath:       binaryPath,
		WorkerCommand:    settings.WorkerCommand,
		NoCache:          settings.NoCache,
	})
	if err != nil {
		var buildErr *container.BuildFailedError
		if errors.As(err, &buildErr) {
			return &ExitError{Code: buildErr.ExitCode, Err: err}
		}
		return err
	}

	fmt.Printf("%s Built %s with %s\n", SuccessStyle.Render("✓"), result.Tag, result.Engine)
	return nil
}

// renderEngineNotFound prints the remediation page for a missing engine.
func renderEngineNotFound() {
	page, err := issue.ContainerEngineNotFound(runtime.GOOS).Render()
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+"no container engine found (install podman or docker)")
		return
	}
	fmt.Fprint(os.Stderr, page)
}
