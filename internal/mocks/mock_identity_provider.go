package mocks

import (
	"context"
	"sync"

	"github.com/you/verifysvc/domain"
)

// MockIdentityProvider implements domain.IdentityProvider for testing.
// Call counters are tracked so tests can assert that local validation
// short-circuits before the network.
type MockIdentityProvider struct {
	mu sync.Mutex

	SignInWithPasswordFunc  func(ctx context.Context, email, password string) (*domain.Account, error)
	SignInWithEmailLinkFunc func(ctx context.Context, email, redirectTo string) error
	SignUpFunc              func(ctx context.Context, email, password string, metadata map[string]string) (*domain.Account, error)
	SendPhoneOTPFunc        func(ctx context.Context, phone string, createUser bool) error
	VerifyPhoneOTPFunc      func(ctx context.Context, phone, code string) (*domain.Account, error)
	OAuthRedirectURLFunc    func(provider, redirectTo string) (string, error)
	CurrentAccountFunc      func(ctx context.Context, accessToken string) (*domain.Account, error)
	SignOutFunc             func(ctx context.Context, accessToken string) error

	SendPhoneOTPCalls   int
	VerifyPhoneOTPCalls int
	SignUpCalls         int
}

// NewMockIdentityProvider creates a new MockIdentityProvider with default behaviors
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{}
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Account, error) {
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return &domain.Account{ID: "user-1", Email: email, AccessToken: "token-1"}, nil
}

func (m *MockIdentityProvider) SignInWithEmailLink(ctx context.Context, email, redirectTo string) error {
	if m.SignInWithEmailLinkFunc != nil {
		return m.SignInWithEmailLinkFunc(ctx, email, redirectTo)
	}
	return nil
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Account, error) {
	m.mu.Lock()
	m.SignUpCalls++
	m.mu.Unlock()
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password, metadata)
	}
	return &domain.Account{ID: "user-1", Email: email, AccessToken: "token-1"}, nil
}

func (m *MockIdentityProvider) SendPhoneOTP(ctx context.Context, phone string, createUser bool) error {
	m.mu.Lock()
	m.SendPhoneOTPCalls++
	m.mu.Unlock()
	if m.SendPhoneOTPFunc != nil {
		return m.SendPhoneOTPFunc(ctx, phone, createUser)
	}
	return nil
}

func (m *MockIdentityProvider) VerifyPhoneOTP(ctx context.Context, phone, code string) (*domain.Account, error) {
	m.mu.Lock()
	m.VerifyPhoneOTPCalls++
	m.mu.Unlock()
	if m.VerifyPhoneOTPFunc != nil {
		return m.VerifyPhoneOTPFunc(ctx, phone, code)
	}
	// Default behavior: accept "123456" as the valid code
	if code == "123456" {
		return &domain.Account{ID: "user-1", Phone: phone, AccessToken: "token-1"}, nil
	}
	return nil, domain.ErrCodeRejected
}

func (m *MockIdentityProvider) OAuthRedirectURL(provider, redirectTo string) (string, error) {
	if m.OAuthRedirectURLFunc != nil {
		return m.OAuthRedirectURLFunc(provider, redirectTo)
	}
	return "https://provider.example/authorize?provider=" + provider, nil
}

func (m *MockIdentityProvider) CurrentAccount(ctx context.Context, accessToken string) (*domain.Account, error) {
	if m.CurrentAccountFunc != nil {
		return m.CurrentAccountFunc(ctx, accessToken)
	}
	return &domain.Account{ID: "user-1", AccessToken: accessToken}, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.IdentityProvider = (*MockIdentityProvider)(nil)
