package db

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model that AutoMigrate manages.
func AllModels() []interface{} {
	return []interface{}{
		&models.Conversation{},
		&models.LeadProfile{},
		&models.LogEntry{},
		&models.Session{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
