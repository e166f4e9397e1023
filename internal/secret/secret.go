// SPDX-License-Identifier: MPL-2.0

// Package secret resolves optional build-time credentials from the process
// environment.
//
// A Reference carries only the credential NAME. The value stays in the
// calling environment and is handed to the container engine through its
// secret-mount mechanism, so it never appears in composed command arguments,
// in image layers, or in log output.
package secret

import "os"

// LookupFunc looks up a variable in an environment, os.LookupEnv-style.
// Tests inject fakes to resolve against synthetic environments.
type LookupFunc func(key string) (string, bool)

// Reference identifies a credential that the container engine should mount
// during the build. It never holds the credential value.
type Reference struct {
	name string
}

// Resolve checks the current process environment for the named credential.
// It returns nil when the name is empty or the variable is unset or blank;
// an absent secret is a valid state, not an error.
func Resolve(name string) *Reference {
	return ResolveFrom(name, os.LookupEnv)
}

// ResolveFrom is Resolve against an injected environment lookup.
func ResolveFrom(name string, lookup LookupFunc) *Reference {
	if name == "" {
		return nil
	}
	v, ok := lookup(name)
	if !ok || v == "" {
		return nil
	}
	return &Reference{name: name}
}

// Name returns the credential name.
func (r *Reference) Name() string { return r.name }

// BuildFlag returns the engine --secret flag value. The engine reads the
// credential from its own process environment ("env=" source), so the value
// itself never enters the composed argument vector.
func (r *Reference) BuildFlag() string {
	return "id=" + r.name + ",env=" + r.name
}

// String returns the credential name only.
func (r *Reference) String() string { return r.name }
