package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:           "authd",
		Short:         "Token issuance, refresh rotation and role-based authorization service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file; AUTHD_* environment variables override it")

	cmd.AddCommand(
		newServeCmd(&cfgPath),
		newMigrateCmd(&cfgPath),
		newKeygenCmd(),
		newLoadtestCmd(),
	)
	return cmd
}
