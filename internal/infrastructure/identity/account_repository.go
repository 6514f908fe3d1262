package identity

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/verifysvc/domain"
)

// DBAccount represents the database model for a local provider account.
// The credential never leaves this package.
type DBAccount struct {
	ID           string `gorm:"primaryKey;size:64"`
	Email        string `gorm:"uniqueIndex;size:255"`
	Phone        string `gorm:"index;size:32"`
	PasswordHash string `gorm:"column:password"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "provider_accounts"
}

// AccountRepository stores local provider accounts using GORM
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *DBAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*DBAccount, error) {
	var account DBAccount
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*DBAccount, error) {
	var account DBAccount
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*DBAccount, error) {
	var account DBAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}
