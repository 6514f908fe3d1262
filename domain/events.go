package domain

import "time"

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Phone verification events
	PhoneVerifiedEvent        AuditEventType = "PHONE_VERIFIED"
	PhoneVerificationFailure  AuditEventType = "PHONE_VERIFICATION_FAILED"
	PhoneChallengeRequest     AuditEventType = "PHONE_CHALLENGE_REQUESTED"
	PhoneChallengeRejected    AuditEventType = "PHONE_CHALLENGE_REJECTED"
	LedgerWriteFailureEvent   AuditEventType = "LEDGER_WRITE_FAILED"

	// Authentication events
	SignInEvent        AuditEventType = "SIGN_IN"
	SignInFailureEvent AuditEventType = "SIGN_IN_FAILED"
	RegistrationEvent  AuditEventType = "ACCOUNT_REGISTERED"
	SignOutEvent       AuditEventType = "SIGN_OUT"

	// Route guard events
	AccessGrantedEvent AuditEventType = "ACCESS_GRANTED"
	AccessDeniedEvent  AuditEventType = "ACCESS_DENIED"
)

// AuditEvent represents a business event that occurred in the system.
// LEDGER_WRITE_FAILED after a successful code validation is the one event
// that requires operator follow-up rather than silent retry.
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    string                 `json:"user_id,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, userID string) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithEmail sets the email field
func (e *AuditEvent) WithEmail(email string) *AuditEvent {
	e.Email = email
	return e
}

// WithPhone sets the phone field
func (e *AuditEvent) WithPhone(phone string) *AuditEvent {
	e.Phone = phone
	return e
}

// WithSession sets the verification session id
func (e *AuditEvent) WithSession(sessionID string) *AuditEvent {
	e.SessionID = sessionID
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
