package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mysql_adapter "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-core/internal/config"
	"github.com/JoeShih716/go-bank-core/pkg/logger"
	"github.com/JoeShih716/go-bank-core/pkg/mysql"
)

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the accounts, transactions and loans tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			client, err := mysql.NewClient(cfg.MySQL, log)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := mysql_adapter.AutoMigrate(client.DB()); err != nil {
				return err
			}
			log.Info("migration finished", zap.String("database", cfg.MySQL.DBName))
			return nil
		},
	}
}
