package mocks

import "github.com/you/verifysvc/domain"

// MockTokenService implements domain.TokenService for testing
type MockTokenService struct {
	GenerateAccessTokenFunc  func(userID, email string) (string, error)
	GenerateRefreshTokenFunc func(userID string) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

func (m *MockTokenService) GenerateAccessToken(userID, email string) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, email)
	}
	return "access_" + userID, nil
}

func (m *MockTokenService) GenerateRefreshToken(userID string) (string, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(userID)
	}
	return "refresh_" + userID, nil
}

func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	return &domain.TokenClaims{UserID: "user-1"}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
