// SPDX-License-Identifier: MPL-2.0

package loader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "environment.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_FileWinsOverAmbient(t *testing.T) {
	t.Parallel()

	path := writeEnvFile(t, "CUDA_VERSION=12.1\nHF_HOME=/data/hf\n")
	ambient := []string{"PATH=/usr/bin", "CUDA_VERSION=11.8"}

	env, present, err := Load(path, ambient)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !present {
		t.Fatal("Load() present = false, want true")
	}

	want := []string{"PATH=/usr/bin", "CUDA_VERSION=12.1", "HF_HOME=/data/hf"}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("Load() = %v, want %v", env, want)
	}
}

func TestLoad_AbsentFileDegradesToAmbient(t *testing.T) {
	t.Parallel()

	ambient := []string{"PATH=/usr/bin", "HOME=/root"}

	env, present, err := Load(filepath.Join(t.TempDir(), "missing.env"), ambient)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if present {
		t.Fatal("Load() present = true, want false")
	}
	if !reflect.DeepEqual(env, ambient) {
		t.Errorf("Load() = %v, want ambient %v", env, ambient)
	}

	// The returned slice must be a copy, never an alias of the input.
	env[0] = "PATH=/tmp"
	if ambient[0] != "PATH=/usr/bin" {
		t.Error("Load() aliased the ambient slice")
	}
}

func TestLoad_MalformedFileFails(t *testing.T) {
	t.Parallel()

	path := writeEnvFile(t, "CUDA_VERSION=12.1\nnot a pair\n")

	if _, _, err := Load(path, nil); err == nil {
		t.Fatal("Load() error = nil, want malformed line error")
	}
}

func TestLoad_ExpandsReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		ambient []string
		want    []string
	}{
		{
			name:    "ambient reference",
			content: "HF_HOME=${DATA_ROOT}/hf\n",
			ambient: []string{"DATA_ROOT=/mnt/data"},
			want:    []string{"DATA_ROOT=/mnt/data", "HF_HOME=/mnt/data/hf"},
		},
		{
			name:    "earlier file entry visible to later ones",
			content: "ROOT=/opt\nMODEL_DIR=$ROOT/models\n",
			ambient: nil,
			want:    []string{"ROOT=/opt", "MODEL_DIR=/opt/models"},
		},
		{
			name:    "file value wins before expansion",
			content: "ROOT=/opt\nMODEL_DIR=${ROOT}/models\n",
			ambient: []string{"ROOT=/usr"},
			want:    []string{"ROOT=/opt", "MODEL_DIR=/opt/models"},
		},
		{
			name:    "unknown reference becomes empty",
			content: "CACHE=${NO_SUCH_VAR}/cache\n",
			ambient: nil,
			want:    []string{"CACHE=/cache"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, _, err := Load(writeEnvFile(t, tt.content), tt.ambient)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(env, tt.want) {
				t.Errorf("Load() = %v, want %v", env, tt.want)
			}
		})
	}
}

func TestLoad_Deterministic(t *testing.T) {
	t.Parallel()

	path := writeEnvFile(t, "B=2\nA=1\nC=3\n")
	ambient := []string{"Z=26", "A=0"}

	first, _, err := Load(path, ambient)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _, err := Load(path, ambient)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Load() not deterministic: %v vs %v", first, again)
		}
	}
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestLaunch_ExecsResolvedWorker(t *testing.T) {
	t.Parallel()

	var gotArgv0 string
	var gotArgv, gotEnv []string

	l := New(testLogger(),
		WithLookPath(func(name string) (string, error) {
			return "/usr/bin/" + name, nil
		}),
		WithExecFunc(func(argv0 string, argv []string, env []string) error {
			gotArgv0 = argv0
			gotArgv = argv
			gotEnv = env
			return nil
		}),
	)

	argv := []string{"python3", "-u", "/handler.py"}
	env := []string{"CUDA_VERSION=12.1"}
	if err := l.Launch(argv, env); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	if gotArgv0 != "/usr/bin/python3" {
		t.Errorf("argv0 = %q, want %q", gotArgv0, "/usr/bin/python3")
	}
	if !reflect.DeepEqual(gotArgv, argv) {
		t.Errorf("argv = %v, want %v", gotArgv, argv)
	}
	if !reflect.DeepEqual(gotEnv, env) {
		t.Errorf("env = %v, want %v", gotEnv, env)
	}
}

func TestLaunch_EmptyArgvFails(t *testing.T) {
	t.Parallel()

	l := New(testLogger(), WithExecFunc(func(string, []string, []string) error {
		t.Error("exec must not be reached for empty argv")
		return nil
	}))

	if err := l.Launch(nil, nil); err == nil {
		t.Fatal("Launch() error = nil, want error")
	}
}

func TestLaunch_UnresolvableWorkerFails(t *testing.T) {
	t.Parallel()

	lookErr := errors.New("executable file not found")
	l := New(testLogger(),
		WithLookPath(func(string) (string, error) { return "", lookErr }),
		WithExecFunc(func(string, []string, []string) error {
			t.Error("exec must not be reached when lookup fails")
			return nil
		}),
	)

	err := l.Launch([]string{"nope"}, nil)
	if !errors.Is(err, lookErr) {
		t.Fatalf("Launch() error = %v, want wrapping %v", err, lookErr)
	}
}
