package ledger

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/verifysvc/domain"
)

func newTestRepository(t *testing.T) domain.VerificationLedger {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&DBVerification{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRepository(db)
}

func TestRepository_UpsertAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	record := &domain.VerificationRecord{
		UserID:        "user-1",
		PhoneNumber:   "+12025551234",
		PhoneVerified: false,
	}
	if err := repo.Upsert(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := repo.Find(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.PhoneNumber != "+12025551234" {
		t.Errorf("expected phone +12025551234, got %q", found.PhoneNumber)
	}
	if found.PhoneVerified {
		t.Error("record should start unverified")
	}
}

func TestRepository_FindAbsent(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Find(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrVerificationNotFound) {
		t.Fatalf("expected ErrVerificationNotFound, got %v", err)
	}
}

func TestRepository_UpsertIsIdempotent(t *testing.T) {
	repo := newTestRepository(t).(*RepositoryImpl)
	ctx := context.Background()

	record := &domain.VerificationRecord{
		UserID:        "user-1",
		PhoneNumber:   "+12025551234",
		PhoneVerified: true,
	}
	for i := 0; i < 3; i++ {
		if err := repo.Upsert(ctx, record); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	var count int64
	if err := repo.db.Model(&DBVerification{}).Where("user_id = ?", "user-1").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one row per user, got %d", count)
	}
}

func TestRepository_VerificationIsMonotone(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_ = repo.Upsert(ctx, &domain.VerificationRecord{
		UserID: "user-1", PhoneNumber: "+12025551234", PhoneVerified: false,
	})
	_ = repo.Upsert(ctx, &domain.VerificationRecord{
		UserID: "user-1", PhoneNumber: "+12025551234", PhoneVerified: true,
	})

	found, err := repo.Find(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found.PhoneVerified {
		t.Error("false to true transition should persist")
	}
}
