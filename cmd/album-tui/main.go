package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/handiism/album-dl/internal/config"
	"github.com/handiism/album-dl/internal/tui"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "album-tui",
		Short:         "Interactive album downloader",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(config.New(), configPath)
			if err != nil {
				return err
			}
			return tui.Run(settings)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
