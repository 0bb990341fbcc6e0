package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igfollow/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
}

// flags returns the config overrides implied by the global flags
func (g *globalOptions) flags() map[string]interface{} {
	flags := make(map[string]interface{})
	switch {
	case g.quiet:
		flags["log-level"] = "error"
	case g.verbose:
		flags["log-level"] = "debug"
	case g.logLevel != "":
		flags["log-level"] = g.logLevel
	}
	return flags
}

func (g *globalOptions) console() *ui.Console {
	return ui.Stdio(g.quiet)
}

// newRootCmd builds the full command tree
func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	collect := &collectOptions{}

	rootCmd := &cobra.Command{
		Use:   "igfollow [username]",
		Short: "Collect the accounts an Instagram profile follows",
		Long: `igfollow resolves an Instagram handle to its account id and walks the
paginated following list, rewriting a JSON snapshot after every page.

Running 'igfollow <username>' is the same as 'igfollow collect <username>'.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, g, collect, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "config file (default is .igfollow.yaml or ~/.config/igfollow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&g.quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "show debug logs and one line per page")

	// The bare form accepts the collect flags too
	collect.register(rootCmd)

	rootCmd.AddCommand(
		newCollectCmd(g),
		newExportCmd(g),
		newCrossrefCmd(g),
		newAuthCmd(g),
		newConfigCmd(g),
	)

	rootCmd.SetVersionTemplate(`igfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		ui.Stdio(false).PrintError("Error", err)
		os.Exit(1)
	}
}
