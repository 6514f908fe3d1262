package domain

import "context"

// IdentityProvider is the external collaborator that owns credentials,
// session tokens and one-time code delivery. Every method returns an error
// descriptor that callers must check; success is never assumed.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Account, error)
	SignInWithEmailLink(ctx context.Context, email, redirectTo string) error
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (*Account, error)
	// SendPhoneOTP delivers a one-time code. createUser controls the
	// shouldCreateUser semantics: true only immediately after sign-up.
	SendPhoneOTP(ctx context.Context, phone string, createUser bool) error
	VerifyPhoneOTP(ctx context.Context, phone, code string) (*Account, error)
	OAuthRedirectURL(provider, redirectTo string) (string, error)
	CurrentAccount(ctx context.Context, accessToken string) (*Account, error)
	SignOut(ctx context.Context, accessToken string) error
}

// VerificationLedger is the persisted per-user verification record store.
type VerificationLedger interface {
	// Upsert writes the record keyed on UserID; repeated writes with the
	// same payload are idempotent.
	Upsert(ctx context.Context, record *VerificationRecord) error
	// Find returns ErrVerificationNotFound when no record exists.
	Find(ctx context.Context, userID string) (*VerificationRecord, error)
}

// Orchestrator owns the sign-in/sign-up/verify state machine and is the
// single source of truth for whether a browser session may see protected
// content.
type Orchestrator interface {
	OpenSession() *VerificationSession
	Session(sessionID string) (*VerificationSession, error)
	CloseSession(sessionID string)

	SignInWithCredential(ctx context.Context, sessionID, email, password string) (*Account, error)
	SignInWithEmailLink(ctx context.Context, sessionID, email string) error
	RegisterAccount(ctx context.Context, sessionID, email, password, phone string) (*Account, error)
	RequestPhoneChallenge(ctx context.Context, sessionID, phone string) error
	SubmitChallengeCode(ctx context.Context, sessionID, code string) error
	IsFullyVerified(ctx context.Context, userID string) bool
	SignOut(ctx context.Context, sessionID string) error
	HandleAuthEvent(sessionID string, event AuthEvent)
	OAuthRedirectURL(provider string) (string, error)
}

// NotificationService defines outbound message delivery.
type NotificationService interface {
	SendSMS(to, message string) error
	SendEmail(to, subject, body string) error
}

// TokenService defines provider-side session token operations. Token
// cryptography is delegated here; the orchestrator never inspects tokens.
type TokenService interface {
	GenerateAccessToken(userID, email string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// TokenClaims represents provider session token claims.
type TokenClaims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// RouteEnforcer decides whether a session stage may reach a route. Backed by
// a Casbin enforcer in production; mocked in tests.
type RouteEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
