package main

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	RootCmd.PersistentFlags().String("config", defaultPath, "config file path")
}

// RootCmd is the sentinel command tree.
var RootCmd = &cobra.Command{
	Use:          "sentinel",
	Short:        "Bollinger Band watchlist monitor",
	SilenceUsage: true,
}
