package database

import (
	"log"

	"github.com/badgehub/badgehub-api/internal/config"
	"github.com/badgehub/badgehub-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	// TranslateError so unique-index violations surface as
	// gorm.ErrDuplicatedKey; the award engine relies on it.
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("Failed to auto migrate: %v", err)
	}

	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Badge{},
		&models.ClaimCode{},
		&models.Evidence{},
		&models.BadgeInstance{},
		&models.BehaviorCredit{},
		&models.Issuer{},
		&models.APIKey{},
	)
}
