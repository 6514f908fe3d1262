package domain

import "errors"

// Input validation errors (never reach the network)
var (
	ErrInvalidInputFormat = errors.New("input failed local validation")
	ErrCodeFormatInvalid  = errors.New("verification code must be exactly 6 digits")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
)

// Credential and challenge errors
var (
	ErrCredentialRejected   = errors.New("invalid credentials")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrCodeRejected         = errors.New("verification code invalid or expired")
	ErrPhoneMismatch        = errors.New("phone number does not match the number on file")
	ErrRateLimited          = errors.New("challenge requested before cooldown elapsed")
	ErrChallengeNotFound    = errors.New("no pending challenge for this phone")
	ErrMaxAttemptsExceeded  = errors.New("maximum verification attempts exceeded")
)

// Ledger errors
var (
	ErrVerificationNotFound = errors.New("verification record not found")
	ErrLedgerWriteFailed    = errors.New("verification ledger write failed")
)

// Session state-machine errors
var (
	ErrSessionNotFound = errors.New("verification session not found")
	ErrStageViolation  = errors.New("operation not permitted in current stage")
)

// Provider errors
var (
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTokenInvalid        = errors.New("invalid session token")
	ErrTokenExpired        = errors.New("session token has expired")
)
