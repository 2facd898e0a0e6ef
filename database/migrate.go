package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"zubi/internal/models"
)

func Migrate(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("Running database migrations...")

	if err := db.AutoMigrate(&models.ConversationRecord{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info().Msg("Database migrations completed successfully")
	return nil
}
