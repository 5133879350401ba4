package services

import (
	"gorm.io/gorm"

	"taskplanner/model"
)

// Migrate creates or updates the tables the reminder job reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Tasks{},
		&model.SystemNotification{},
		&model.DigestLog{},
	)
}
