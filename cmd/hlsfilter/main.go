// Command hlsfilter filters HLS master playlists and windows HLS media
// playlists, either as an HTTP service or on files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/as/hlsfilter/internal/config"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hlsfilter:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "hlsfilter",
		Short:         "Filter and window HLS playlists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (filter defaults, server settings)")

	load := func() (config.Config, error) { return config.Load(configPath) }
	root.AddCommand(
		newServeCmd(&configPath),
		newMasterCmd(load),
		newMediaCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "hlsfilter", version)
			},
		},
	)
	return root
}
