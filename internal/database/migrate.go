package database

import (
	"glimpse/internal/models"

	"gorm.io/gorm"
)

// MigrationModels lists every model registered for auto-migration, in
// dependency order (referenced tables first).
func MigrationModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.CommentLike{},
		&models.Follow{},
	}
}

// Migrate runs gorm auto-migration for all registered models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(MigrationModels()...)
}
