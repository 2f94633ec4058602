package main

import (
	"github.com/spf13/cobra"

	"github.com/JoeShih716/go-bank-core/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "core",
		Short:         "Bank accounting core service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to config yaml (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")

	load := func() (*config.Config, error) {
		if configPath == "" {
			configPath = config.Path()
		}
		return config.Load(configPath)
	}
	root.AddCommand(newServeCmd(load), newMigrateCmd(load))
	return root
}
