package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/verifysvc/internal/infrastructure/identity"
	"github.com/you/verifysvc/internal/infrastructure/ledger"
)

// Open creates a new database connection
func Open(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	return gorm.Open(postgres.Open(dsn), config)
}

// AutoMigrate creates the verification ledger table and, for local
// provider deployments, the provider account table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ledger.DBVerification{}); err != nil {
		return fmt.Errorf("failed to migrate user_verifications table: %w", err)
	}
	if err := db.AutoMigrate(&identity.DBAccount{}); err != nil {
		return fmt.Errorf("failed to migrate provider_accounts table: %w", err)
	}
	return nil
}
