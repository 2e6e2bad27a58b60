package database

import (
	"fmt"

	"github.com/garlicdoggoe/astrosynergy/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Trade{},
		&models.CustomColumn{},
		&models.Portfolio{},
		&models.Note{},
		&models.StoredFile{},
		&models.Backup{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
