package domain

import "time"

// Account represents an identity-provider-managed account. The provider owns
// the credential and the session tokens; this service only reads them.
type Account struct {
	ID           string
	Email        string
	Phone        string
	AccessToken  string
	RefreshToken string
	CreatedAt    time.Time
}

// VerificationRecord is the durable per-user verification ledger row.
// At most one record exists per user id; writes are idempotent upserts.
type VerificationRecord struct {
	UserID        string
	PhoneNumber   string
	PhoneVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ChallengeRequest represents an issued phone challenge.
type ChallengeRequest struct {
	Phone     string
	Code      string
	UserID    string
	ExpiresAt time.Time
	Attempts  int
}

// AuthEventType identifies a push notification from the identity provider,
// fired outside direct user action (token refresh, remote sign-out).
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "SIGNED_IN"
	AuthEventSignedOut      AuthEventType = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is the inbound provider message delivered to the orchestrator.
type AuthEvent struct {
	Type    AuthEventType
	Account *Account
}
