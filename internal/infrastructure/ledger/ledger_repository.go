package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/verifysvc/domain"
)

// RepositoryImpl implements domain.VerificationLedger using GORM
type RepositoryImpl struct {
	db *gorm.DB
}

// DBVerification represents the database model for a verification record
type DBVerification struct {
	UserID        string `gorm:"primaryKey;size:64"`
	PhoneNumber   string `gorm:"size:32"`
	PhoneVerified bool   `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (DBVerification) TableName() string {
	return "user_verifications"
}

// NewRepository creates a new verification ledger repository
func NewRepository(db *gorm.DB) domain.VerificationLedger {
	return &RepositoryImpl{db: db}
}

// Upsert implements domain.VerificationLedger. The write is keyed on
// user_id so repeated writes stay idempotent; there is never more than one
// row per user.
func (r *RepositoryImpl) Upsert(ctx context.Context, record *domain.VerificationRecord) error {
	row := &DBVerification{
		UserID:        record.UserID,
		PhoneNumber:   record.PhoneNumber,
		PhoneVerified: record.PhoneVerified,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"phone_number", "phone_verified", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert verification for user %s: %w", record.UserID, err)
	}
	return nil
}

// Find implements domain.VerificationLedger
func (r *RepositoryImpl) Find(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	var row DBVerification
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVerificationNotFound
		}
		return nil, err
	}

	return &domain.VerificationRecord{
		UserID:        row.UserID,
		PhoneNumber:   row.PhoneNumber,
		PhoneVerified: row.PhoneVerified,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
