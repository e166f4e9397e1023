// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"reflect"
	"testing"

	"infinityctl/internal/config"
	"infinityctl/internal/container"
)

func TestMergeBuildSettings(t *testing.T) {
	t.Parallel()

	base := config.DefaultConfig()

	t.Run("config values pass through when no flags set", func(t *testing.T) {
		t.Parallel()

		s := mergeBuildSettings(base, buildFlagValues{})
		if s.Tag != base.ImageTag {
			t.Errorf("Tag = %q, want %q", s.Tag, base.ImageTag)
		}
		if s.Engine != base.Engine {
			t.Errorf("Engine = %q, want %q", s.Engine, base.Engine)
		}
		if s.EnvFile != base.EnvFile {
			t.Errorf("EnvFile = %q, want %q", s.EnvFile, base.EnvFile)
		}
		if !reflect.DeepEqual(s.WorkerCommand, base.WorkerCommand) {
			t.Errorf("WorkerCommand = %v, want %v", s.WorkerCommand, base.WorkerCommand)
		}
	})

	t.Run("flags override config", func(t *testing.T) {
		t.Parallel()

		s := mergeBuildSettings(base, buildFlagValues{
			Tag:        "worker:canary",
			EnvFile:    "prod.env",
			Engine:     "docker",
			Platform:   "linux/arm64",
			SecretName: "OTHER_TOKEN",
			NoCache:    true,
		})
		if s.Tag != "worker:canary" {
			t.Errorf("Tag = %q, want flag value", s.Tag)
		}
		if s.EnvFile != "prod.env" {
			t.Errorf("EnvFile = %q, want flag value", s.EnvFile)
		}
		if s.Engine != "docker" {
			t.Errorf("Engine = %q, want flag value", s.Engine)
		}
		if s.Platform != "linux/arm64" {
			t.Errorf("Platform = %q, want flag value", s.Platform)
		}
		if s.SecretName != "OTHER_TOKEN" {
			t.Errorf("SecretName = %q, want flag value", s.SecretName)
		}
		if !s.NoCache {
			t.Error("NoCache = false, want true")
		}
		// Fields without flag overrides keep their configured values.
		if s.BaseImage != base.BaseImage {
			t.Errorf("BaseImage = %q, want %q", s.BaseImage, base.BaseImage)
		}
	})
}

func TestSelectEngineType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setting string
		want    container.EngineType
		wantErr error
	}{
		{name: "forced podman", setting: config.EnginePodman, want: container.EngineTypePodman},
		{name: "forced docker", setting: config.EngineDocker, want: container.EngineTypeDocker},
		{name: "unknown setting rejected", setting: "containerd", wantErr: config.ErrInvalidEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := selectEngineType(tt.setting)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("selectEngineType(%q) error = %v, want %v", tt.setting, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("selectEngineType(%q) error = %v", tt.setting, err)
			}
			if got != tt.want {
				t.Errorf("selectEngineType(%q) = %v, want %v", tt.setting, got, tt.want)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	inner := errors.New("engine exploded")
	err := &ExitError{Code: 125, Err: inner}
	if err.Error() != "engine exploded" {
		t.Errorf("Error() = %q, want inner message", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is() = false, want unwrap to inner error")
	}

	bare := &ExitError{Code: 2}
	if bare.Error() != "exit status 2" {
		t.Errorf("Error() = %q, want synthesized message", bare.Error())
	}
}
