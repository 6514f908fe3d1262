package services

import (
	"context"
	"testing"

	"github.com/you/verifysvc/domain"
	"github.com/you/verifysvc/internal/mocks"
)

// newOrchestratorForTest wires an orchestrator against mocks with the
// production cooldown of 30 seconds (one-second ticks, so cooldowns do not
// move during fast tests).
func newOrchestratorForTest(t *testing.T) (domain.Orchestrator, *mocks.MockIdentityProvider, *mocks.MockLedger, *SessionManager) {
	t.Helper()

	provider := mocks.NewMockIdentityProvider()
	ledger := mocks.NewMockLedger()
	sessions := NewSessionManager(30)

	orch := NewOrchestrator(provider, ledger, sessions, OrchestratorConfig{
		CooldownSeconds: 30,
		RegionPrefix:    "+1",
		RedirectTo:      "http://localhost/auth",
	})

	return orch, provider, ledger, sessions
}

// signedInSession opens a session and moves it to awaiting_phone_match via
// a successful credential check.
func signedInSession(t *testing.T, orch domain.Orchestrator) string {
	t.Helper()

	s := orch.OpenSession()
	if _, err := orch.SignInWithCredential(context.Background(), s.ID, "user@example.com", "Abcd123!"); err != nil {
		t.Fatalf("sign-in setup failed: %v", err)
	}
	return s.ID
}

// registeredSession opens a session and registers an account, leaving the
// session in otp_sent with a pending challenge.
func registeredSession(t *testing.T, orch domain.Orchestrator, phone string) string {
	t.Helper()

	s := orch.OpenSession()
	if _, err := orch.RegisterAccount(context.Background(), s.ID, "new@example.com", "Abcd123!", phone); err != nil {
		t.Fatalf("registration setup failed: %v", err)
	}
	return s.ID
}
