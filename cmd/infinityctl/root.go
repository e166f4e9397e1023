// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"infinityctl/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// Verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the loaded configuration, populated by initRootConfig.
	cfg *config.Config
	// logger is the shared CLI logger, populated by initRootConfig.
	logger *log.Logger

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "infinityctl",
		Short: "Provision and launch GPU inference worker containers",
		Long: TitleStyle.Render("infinityctl") + SubtitleStyle.Render(" - Provision and launch GPU inference worker containers") + `

infinityctl builds deterministic, CUDA-pinned container images for
inference workers and reconstructs the baked environment when the
container starts.

The build reads a KEY=VALUE environment descriptor, pins the target
platform, and drives a single podman or docker build. Inside the image,
the launch command loads the baked descriptor over the ambient
environment and hands off to the worker process.

` + SubtitleStyle.Render("Examples:") + `
  infinityctl build                       Build with the configured defaults
  infinityctl build --env-file prod.env   Build from a specific descriptor
  infinityctl doctor                      Check host prerequisites
  infinityctl launch -- python3 serve.py  Load the baked env and exec the worker`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/infinityctl/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(doctorCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}

	// Usage text is not a successful run: scripts that invoke the tool
	// wrong must see a non-zero status even though cobra treats help as ok.
	if usageOnlyInvocation(rootCmd, os.Args[1:]) {
		os.Exit(1)
	}
}

// usageOnlyInvocation reports whether a completed invocation could only have
// printed usage text: an explicit help request on the resolved command, the
// built-in help subcommand, or the bare root (which has no run function of
// its own). It inspects cobra's parsed flag state rather than raw argv, so a
// flag value that merely looks like "help" does not count.
func usageOnlyInvocation(root *cobra.Command, args []string) bool {
	cmd, _, err := root.Find(args)
	if err != nil || cmd == nil {
		return false
	}
	if f := cmd.Flags().Lookup("version"); f != nil && f.Changed {
		return false
	}
	if f := cmd.Flags().Lookup("help"); f != nil && f.Changed {
		return true
	}
	if cmd.Name() == "help" && cmd.Parent() == root {
		return true
	}
	return cmd == root
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	logLevel := log.InfoLevel
	if verbose {
		logLevel = log.DebugLevel
	}
	logger = log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "infinityctl",
		Level:  logLevel,
	})

	loaded, err := config.Load(cfgFile)
	if err != nil {
		// Surface the problem but keep going on defaults; an unreadable
		// config file must not take the launch path down with it.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
		loaded = config.DefaultConfig()
	}
	cfg = loaded
}
