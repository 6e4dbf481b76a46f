package cmd

import (
	"fmt"

	"github.com/fzft/go-chained-map/log"
	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary through -ldflags.
type BuildInfo struct {
	GitSHA1   string
	GitDirty  string
	BuildID   string
	BuildDate string
}

func (b BuildInfo) String() string {
	version := "chmap"
	if b.GitSHA1 != "" && b.GitSHA1 != "unknown" {
		version = fmt.Sprintf("%s (git:%s", version, b.GitSHA1)
		if b.GitDirty != "" && b.GitDirty != "0" && b.GitDirty != "unknown" {
			version += "-dirty"
		}
		version += ")"
	}
	if b.BuildDate != "" && b.BuildDate != "unknown" {
		version = fmt.Sprintf("%s built %s", version, b.BuildDate)
	}
	if b.BuildID != "" && b.BuildID != "unknown" {
		version = fmt.Sprintf("%s id=%s", version, b.BuildID)
	}
	return version
}

// NewRootCommand builds the chmap command tree. Running it without a
// subcommand starts the shell.
func NewRootCommand(info BuildInfo) *cobra.Command {
	var (
		envFile string
		config  Config
	)

	root := &cobra.Command{
		Use:          "chmap",
		Short:        "Shell and benchmarks for an in-memory chained hash table",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := LoadConfig(envFile)
			if err != nil {
				return err
			}
			config = c
			return log.InitLogger(config.LogLevel, config.LogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, &config)
		},
	}
	root.PersistentFlags().StringVarP(&envFile, "env-file", "e", "", "Path to a .env configuration file")

	root.AddCommand(
		newReplCommand(&config),
		newBenchCommand(&config),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			},
		},
	)
	return root
}
