package main

import (
	"github.com/MrEthical07/authcore/permission"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and seed the role and permission catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, logger, err := loadSettings(*cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := openStore(cmd.Context(), s, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateSchema(cmd.Context()); err != nil {
				logger.Error("create schema", zap.Error(err))
				return err
			}
			if err := store.Seed(cmd.Context(), permission.DefaultCatalog()); err != nil {
				logger.Error("seed catalog", zap.Error(err))
				return err
			}
			logger.Info("migration complete", zap.String("driver", s.DB.Driver))
			return nil
		},
	}
}
