package mocks

import (
	"context"
	"sync"

	"github.com/you/verifysvc/domain"
)

// MockLedger implements domain.VerificationLedger for testing. The default
// behavior is a real in-memory upsert/find so round-trip tests work without
// any setup; either operation can be overridden per test.
type MockLedger struct {
	mu      sync.Mutex
	records map[string]*domain.VerificationRecord

	UpsertFunc func(ctx context.Context, record *domain.VerificationRecord) error
	FindFunc   func(ctx context.Context, userID string) (*domain.VerificationRecord, error)

	UpsertCalls int
}

// NewMockLedger creates a new MockLedger with default behaviors
func NewMockLedger() *MockLedger {
	return &MockLedger{records: make(map[string]*domain.VerificationRecord)}
}

func (m *MockLedger) Upsert(ctx context.Context, record *domain.VerificationRecord) error {
	m.mu.Lock()
	m.UpsertCalls++
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.records[record.UserID] = &copied
	return nil
}

func (m *MockLedger) Find(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok {
		return nil, domain.ErrVerificationNotFound
	}
	copied := *record
	return &copied, nil
}

// Seed installs a record ahead of the scenario under test.
func (m *MockLedger) Seed(userID, phone string, verified bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = &domain.VerificationRecord{
		UserID:        userID,
		PhoneNumber:   phone,
		PhoneVerified: verified,
	}
}

// Record returns the stored record for assertions, or nil.
func (m *MockLedger) Record(userID string) *domain.VerificationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok {
		return nil
	}
	copied := *record
	return &copied
}

// Compile-time interface compliance verification
var _ domain.VerificationLedger = (*MockLedger)(nil)
