package domain

// Stage is the current state of a per-tab verification session. Only
// StageVerified grants access to protected routes; every other stage routes
// the client back to the verification UI.
type Stage string

const (
	StageAnonymous          Stage = "anonymous"
	StageAwaitingPassword   Stage = "awaiting_password"
	StageAwaitingPhoneMatch Stage = "awaiting_phone_match"
	StageOTPSent            Stage = "otp_sent"
	StageVerified           Stage = "verified"
)

// SessionEvent drives the verification state machine.
type SessionEvent string

const (
	EventEmailLinkSent SessionEvent = "email_link_sent"
	EventCredentialOK  SessionEvent = "credential_ok"
	EventRegistered    SessionEvent = "registered"
	EventChallengeSent SessionEvent = "challenge_sent"
	EventCodeAccepted  SessionEvent = "code_accepted"
	EventCodeRejected  SessionEvent = "code_rejected"
	EventSignedOut     SessionEvent = "signed_out"
)

// VerificationSession is the in-memory, per browser tab state machine
// instance. It is never persisted; a page reload re-derives the stage from
// the provider session plus a fresh ledger lookup.
type VerificationSession struct {
	ID                string
	UserID            string
	Email             string
	AccessToken       string
	Stage             Stage
	PendingPhone      string
	CooldownRemaining int
	JustRegistered    bool
}

// Transition is the pure state-machine step. It returns the next stage for
// the given event, or ErrStageViolation when the event is illegal in the
// current stage.
func Transition(current Stage, event SessionEvent) (Stage, error) {
	// Sign-out resets any stage.
	if event == EventSignedOut {
		return StageAnonymous, nil
	}

	switch current {
	case StageAnonymous:
		switch event {
		case EventCredentialOK:
			return StageAwaitingPhoneMatch, nil
		case EventRegistered:
			return StageOTPSent, nil
		case EventEmailLinkSent:
			return StageAwaitingPassword, nil
		}
	case StageAwaitingPassword:
		if event == EventCredentialOK {
			return StageAwaitingPhoneMatch, nil
		}
	case StageAwaitingPhoneMatch:
		if event == EventChallengeSent {
			return StageOTPSent, nil
		}
	case StageOTPSent:
		switch event {
		case EventCodeAccepted:
			return StageVerified, nil
		case EventCodeRejected:
			return StageOTPSent, nil
		case EventChallengeSent: // resend after cooldown
			return StageOTPSent, nil
		}
	case StageVerified:
		// Terminal until sign-out.
	}

	return current, ErrStageViolation
}

// Apply advances the session through the state machine, mutating Stage only
// when the transition is legal.
func (s *VerificationSession) Apply(event SessionEvent) error {
	next, err := Transition(s.Stage, event)
	if err != nil {
		return err
	}
	s.Stage = next
	return nil
}
