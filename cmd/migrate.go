package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zubi/database"
	"zubi/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the conversation tables for the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			switch cfg.StoreDriver {
			case "postgres":
				db, err := database.Connect(cfg.PostgresDSN(), log)
				if err != nil {
					return err
				}
				sqlDB, err := db.DB()
				if err != nil {
					return fmt.Errorf("failed to get database connection: %w", err)
				}
				defer sqlDB.Close()
				return database.Migrate(db, log)

			case "sqlite":
				repo, err := repository.NewSQLiteConversationRepository(cfg.SQLitePath)
				if err != nil {
					return err
				}
				log.Info().Str("path", cfg.SQLitePath).Msg("SQLite schema is up to date")
				return repo.Close()

			default:
				log.Info().Str("driver", cfg.StoreDriver).Msg("Nothing to migrate")
				return nil
			}
		},
	}
}
