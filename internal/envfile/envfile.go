// SPDX-License-Identifier: MPL-2.0

// Package envfile parses flat KEY=VALUE environment descriptor files.
//
// The parse contract is shared bit-for-bit by the build orchestrator and
// the runtime loader, so both call sites see identical results:
//
//   - each line is whitespace-trimmed as a whole before inspection;
//   - blank lines and lines starting with '#' are skipped;
//   - remaining lines are split on the FIRST '=' only; neither the key nor
//     the value receives any further trimming, so inner and trailing spaces
//     in values survive;
//   - a non-comment line without '=' is a parse error;
//   - duplicate keys are allowed and the LAST occurrence wins, while the
//     key keeps the position of its first occurrence in iteration order.
package envfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrDescriptorNotFound is the sentinel error wrapped by DescriptorNotFoundError.
	ErrDescriptorNotFound = errors.New("environment descriptor not found")

	// ErrKeyNotFound is the sentinel error wrapped by KeyNotFoundError.
	ErrKeyNotFound = errors.New("required key not found")

	// ErrMalformedLine is the sentinel error wrapped by MalformedLineError.
	ErrMalformedLine = errors.New("malformed descriptor line")
)

type (
	// Pair is a single KEY=VALUE entry of a descriptor.
	Pair struct {
		Key   string
		Value string
	}

	// Descriptor is an ordered mapping of variable names to string values.
	// Iteration order is the order of first occurrence in the source file.
	Descriptor struct {
		pairs []Pair
		index map[string]int
	}

	// DescriptorNotFoundError is returned when the descriptor path does not exist.
	DescriptorNotFoundError struct {
		Path  string
		Cause error
	}

	// KeyNotFoundError is returned by Require when a key is absent after parsing.
	KeyNotFoundError struct {
		Key  string
		Path string
	}

	// MalformedLineError is returned when a non-comment line has no '=' separator.
	MalformedLineError struct {
		Path string
		Line int
		Text string
	}
)

// Error implements the error interface.
func (e *DescriptorNotFoundError) Error() string {
	return fmt.Sprintf("environment descriptor %q not found", e.Path)
}

// Unwrap returns ErrDescriptorNotFound so callers can use errors.Is for programmatic detection.
func (e *DescriptorNotFoundError) Unwrap() error { return ErrDescriptorNotFound }

// Error implements the error interface.
func (e *KeyNotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("required key %q not found in descriptor", e.Key)
	}
	return fmt.Sprintf("required key %q not found in descriptor %q", e.Key, e.Path)
}

// Unwrap returns ErrKeyNotFound so callers can use errors.Is for programmatic detection.
func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// Error implements the error interface.
func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("%s:%d: line %q has no '=' separator", e.Path, e.Line, e.Text)
}

// Unwrap returns ErrMalformedLine so callers can use errors.Is for programmatic detection.
func (e *MalformedLineError) Unwrap() error { return ErrMalformedLine }

// New returns an empty Descriptor.
func New() *Descriptor {
	return &Descriptor{index: make(map[string]int)}
}

// Load reads and parses the descriptor file at path.
// A missing file yields a DescriptorNotFoundError; callers that treat an
// absent descriptor as a degraded-but-valid state (the runtime loader)
// check for it with errors.Is(err, ErrDescriptorNotFound).
func Load(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DescriptorNotFoundError{Path: path, Cause: err}
		}
		return nil, fmt.Errorf("open environment descriptor %q: %w", path, err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	return Parse(f, path)
}

// Parse reads descriptor lines from r. The path is used in error messages only.
func Parse(r io.Reader, path string) (*Descriptor, error) {
	d := New()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			return nil, &MalformedLineError{Path: path, Line: lineNo, Text: line}
		}

		d.Set(line[:idx], line[idx+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read environment descriptor %q: %w", path, err)
	}

	return d, nil
}

// Set stores a key/value pair. A key that already exists keeps its original
// position and its value is replaced (last occurrence wins).
func (d *Descriptor) Set(key, value string) {
	if i, ok := d.index[key]; ok {
		d.pairs[i].Value = value
		return
	}
	d.index[key] = len(d.pairs)
	d.pairs = append(d.pairs, Pair{Key: key, Value: value})
}

// Lookup returns the value for key and whether it is present.
func (d *Descriptor) Lookup(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.pairs[i].Value, true
}

// Get returns the value for key, or the empty string if absent.
func (d *Descriptor) Get(key string) string {
	v, _ := d.Lookup(key)
	return v
}

// Require returns the value for key or a KeyNotFoundError if it is absent.
// The path parameter is used in the error message only.
func (d *Descriptor) Require(key, path string) (string, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return "", &KeyNotFoundError{Key: key, Path: path}
	}
	return v, nil
}

// Pairs returns the entries in iteration order (first occurrence of each key).
// The returned slice is a copy and safe to mutate.
func (d *Descriptor) Pairs() []Pair {
	out := make([]Pair, len(d.pairs))
	copy(out, d.pairs)
	return out
}

// Len returns the number of distinct keys.
func (d *Descriptor) Len() int { return len(d.pairs) }
