package cli

import (
	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/container"
	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := config.Connect(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN); err != nil {
				return err
			}
			if sqlDB, err := config.DB.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := container.AutoMigrate(config.DB); err != nil {
				return err
			}
			config.Logger.Info("migrations applied")
			return nil
		},
	}
}
