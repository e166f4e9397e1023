// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"testing"

	"github.com/spf13/cobra"
)

// newUsageTestRoot builds a minimal command tree mirroring the real one:
// a run-less root and a build subcommand with a value-taking flag.
func newUsageTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "infinityctl"}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	build := &cobra.Command{
		Use:  "build",
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	build.Flags().StringP("tag", "t", "", "image tag")
	root.AddCommand(build)

	launch := &cobra.Command{
		Use:  "launch",
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	root.AddCommand(launch)

	return root
}

// Executing a command tree runs cobra's global initializers, which write the
// package-level cfg and logger; these tests therefore stay serial.
func TestUsageOnlyInvocation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "no arguments", args: nil, want: true},
		{name: "long help flag", args: []string{"--help"}, want: true},
		{name: "short help flag", args: []string{"-h"}, want: true},
		{name: "help subcommand", args: []string{"help"}, want: true},
		{name: "help subcommand with topic", args: []string{"help", "build"}, want: true},
		{name: "subcommand help flag", args: []string{"build", "--help"}, want: true},
		{name: "regular build", args: []string{"build", "--tag", "worker:1"}, want: false},
		{name: "flag value that spells help", args: []string{"build", "--tag", "help"}, want: false},
		{name: "help after separator belongs to the worker", args: []string{"launch", "--", "help"}, want: false},
		{name: "launch with worker argv", args: []string{"launch", "--", "python3", "-u", "/handler.py"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Execute first so cobra parses flags and records help requests,
			// matching the real Execute() ordering.
			root := newUsageTestRoot()
			root.SetArgs(tt.args)
			if err := root.Execute(); err != nil {
				t.Fatalf("Execute(%v) error = %v", tt.args, err)
			}

			if got := usageOnlyInvocation(root, tt.args); got != tt.want {
				t.Errorf("usageOnlyInvocation(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestUsageOnlyInvocation_VersionIsNotUsage(t *testing.T) {
	root := newUsageTestRoot()
	root.Version = "1.2.3"
	args := []string{"--version"}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}

	if usageOnlyInvocation(root, args) {
		t.Error("usageOnlyInvocation() = true for --version, want false")
	}
}

func TestGetVersionString(t *testing.T) {
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q, want dev default", got)
	}
}
