// SPDX-License-Identifier: MPL-2.0

// Package loader reconstructs the provisioned environment inside the running
// container and hands control to the worker process.
//
// Precedence is file-wins: a variable present in the baked environment file
// overrides the same variable in the ambient process environment. This is
// the opposite of typical shell sourcing semantics and is a deliberate,
// tested contract: the descriptor is the source of truth for the image.
// An absent file is not an error; the worker then inherits the ambient
// environment unchanged.
package loader

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"infinityctl/internal/envfile"
)

type (
	// ExecFunc replaces the current process image, syscall.Exec-style.
	// Tests inject fakes to observe the final argv and environment.
	ExecFunc func(argv0 string, argv []string, env []string) error

	// LoaderOption configures a Loader.
	LoaderOption func(*Loader)

	// Loader loads the baked environment and launches the worker.
	Loader struct {
		execFn   ExecFunc
		lookPath func(string) (string, error)
		logger   *log.Logger
	}
)

// WithExecFunc sets a custom process-replacement function for testing.
func WithExecFunc(fn ExecFunc) LoaderOption {
	return func(l *Loader) {
		l.execFn = fn
	}
}

// WithLookPath sets a custom binary resolver for testing.
func WithLookPath(fn func(string) (string, error)) LoaderOption {
	return func(l *Loader) {
		l.lookPath = fn
	}
}

// New creates a Loader.
func New(logger *log.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		execFn:   defaultExec,
		lookPath: exec.LookPath,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges the baked environment file at path over the ambient
// environment and returns the resulting environ slice. The second return
// value reports whether the file was present.
//
// File entries are applied in descriptor order. Values may reference other
// variables with $NAME or ${NAME}; references resolve against the merged
// environment as loaded so far, so earlier file entries are visible to later
// ones and ambient values fill the rest. Unknown references resolve to the
// empty string.
func Load(path string, ambient []string) ([]string, bool, error) {
	d, err := envfile.Load(path)
	if err != nil {
		if errors.Is(err, envfile.ErrDescriptorNotFound) {
			out := make([]string, len(ambient))
			copy(out, ambient)
			return out, false, nil
		}
		return nil, false, err
	}

	merged := make([]string, len(ambient))
	copy(merged, ambient)

	index := make(map[string]int, len(ambient))
	for i, kv := range merged {
		if eq := strings.Index(kv, "="); eq >= 0 {
			index[kv[:eq]] = i
		}
	}

	lookup := func(name string) string {
		if i, ok := index[name]; ok {
			kv := merged[i]
			if eq := strings.Index(kv, "="); eq >= 0 {
				return kv[eq+1:]
			}
		}
		return ""
	}

	for _, pair := range d.Pairs() {
		value := os.Expand(pair.Value, lookup)
		kv := pair.Key + "=" + value
		if i, ok := index[pair.Key]; ok {
			merged[i] = kv // file wins over ambient
		} else {
			index[pair.Key] = len(merged)
			merged = append(merged, kv)
		}
	}

	return merged, true, nil
}

// Launch transfers control to the worker. On success it does not return:
// the worker replaces the current process. The loader never inspects or
// validates the worker's behavior.
func (l *Loader) Launch(argv []string, env []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no worker command to launch")
	}

	path, err := l.lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("resolve worker executable %q: %w", argv[0], err)
	}

	l.logger.Debug("handing off to worker", "argv", argv)

	return l.execFn(path, argv, env)
}
