// SPDX-License-Identifier: MPL-2.0

// Package config loads orchestrator configuration.
//
// Sources, lowest precedence first: built-in defaults, an optional
// config.yaml in the infinityctl config directory (or an explicit file given
// via --config), and INFINITYCTL_* environment variables. CLI flags override
// everything at the call site. A missing config file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"infinityctl/internal/issue"
	"infinityctl/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "infinityctl"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"

	// EnvPrefix namespaces environment variable overrides (INFINITYCTL_IMAGE_TAG, ...).
	EnvPrefix = "INFINITYCTL"
)

// Config holds all orchestrator settings.
type Config struct {
	// ImageTag is the tag for the produced worker image.
	ImageTag string `mapstructure:"image_tag"`
	// Platform is the single architecture every build is pinned to.
	Platform string `mapstructure:"platform"`
	// Engine selects the container engine: auto, podman, or docker.
	Engine string `mapstructure:"engine"`
	// BaseImage is the FROM image of the generated Dockerfile.
	BaseImage string `mapstructure:"base_image"`
	// SecretName is the ambient variable holding the optional build credential.
	SecretName string `mapstructure:"secret_name"`
	// EnvFile is the path of the environment descriptor.
	EnvFile string `mapstructure:"env_file"`
	// RequirementsFile is the dependency manifest handed to the setup procedure.
	RequirementsFile string `mapstructure:"requirements_file"`
	// SrcDir holds source files that override the worker's bundled sources.
	SrcDir string `mapstructure:"src_dir"`
	// SetupScript is the external setup procedure executed during the build.
	SetupScript string `mapstructure:"setup_script"`
	// RuntimeEnvPath is the image-internal path of the baked descriptor.
	RuntimeEnvPath string `mapstructure:"runtime_env_path"`
	// WorkerCommand is the default worker argv launched at container start.
	WorkerCommand []string `mapstructure:"worker_command"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ImageTag:         "infinity-worker:latest",
		Platform:         "linux/amd64",
		Engine:           "auto",
		BaseImage:        "nvidia/cuda:12.1.0-base-ubuntu22.04",
		SecretName:       "HF_TOKEN",
		EnvFile:          "environment.env",
		RequirementsFile: "requirements.txt",
		SrcDir:           "src",
		SetupScript:      "setup_environment.py",
		RuntimeEnvPath:   "/root/.env",
		WorkerCommand:    []string{"python3", "-u", "/handler.py"},
	}
}

// configDirOverride allows tests to redirect the config directory.
var configDirOverride string

// SetConfigDirOverride redirects configuration loading for tests.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// ConfigDir returns the infinityctl configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves the configuration. configFilePath, when non-empty, names an
// explicit config file that must exist; otherwise the default location is
// probed and silently skipped when absent.
func Load(configFilePath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("image_tag", defaults.ImageTag)
	v.SetDefault("platform", defaults.Platform)
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("base_image", defaults.BaseImage)
	v.SetDefault("secret_name", defaults.SecretName)
	v.SetDefault("env_file", defaults.EnvFile)
	v.SetDefault("requirements_file", defaults.RequirementsFile)
	v.SetDefault("src_dir", defaults.SrcDir)
	v.SetDefault("setup_script", defaults.SetupScript)
	v.SetDefault("runtime_env_path", defaults.RuntimeEnvPath)
	v.SetDefault("worker_command", defaults.WorkerCommand)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(configFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file contains valid YAML").
				Wrap(err).
				BuildError()
		}
	} else {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)).
					WithSuggestion("Check that the file contains valid YAML").
					Wrap(err).
					BuildError()
			}
			// No config file found: defaults apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateEngine(cfg.Engine); err != nil {
		return nil, err
	}

	return &cfg, nil
}
