package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/you/verifysvc/domain"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// OrchestratorConfig carries the verification flow settings.
type OrchestratorConfig struct {
	CooldownSeconds int
	RegionPrefix    string
	RedirectTo      string
}

// OrchestratorImpl implements domain.Orchestrator. It is the single source
// of truth for whether a browser session may see protected content: the
// provider proves identity, the phone challenge proves possession, and the
// ledger records the durable outcome.
type OrchestratorImpl struct {
	provider   domain.IdentityProvider
	ledger     domain.VerificationLedger
	sessions   *SessionManager
	normalizer *PhoneNormalizer
	config     OrchestratorConfig
}

// NewOrchestrator creates the verification orchestrator.
func NewOrchestrator(
	provider domain.IdentityProvider,
	ledger domain.VerificationLedger,
	sessions *SessionManager,
	config OrchestratorConfig,
) domain.Orchestrator {
	return &OrchestratorImpl{
		provider:   provider,
		ledger:     ledger,
		sessions:   sessions,
		normalizer: NewPhoneNormalizer(config.RegionPrefix),
		config:     config,
	}
}

// OpenSession implements domain.Orchestrator
func (o *OrchestratorImpl) OpenSession() *domain.VerificationSession {
	return o.sessions.Open()
}

// Session implements domain.Orchestrator
func (o *OrchestratorImpl) Session(sessionID string) (*domain.VerificationSession, error) {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// CloseSession implements domain.Orchestrator
func (o *OrchestratorImpl) CloseSession(sessionID string) {
	o.sessions.Close(sessionID)
}

// SignInWithCredential implements domain.Orchestrator. A successful
// password check never makes the session usable by itself: the stage moves
// to awaiting_phone_match and possession must still be proven, even for
// users whose ledger flag is already true.
func (o *OrchestratorImpl) SignInWithCredential(ctx context.Context, sessionID, email, password string) (*domain.Account, error) {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Transition(snapshot.Stage, domain.EventCredentialOK); err != nil {
		return nil, err
	}

	account, err := o.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		o.audit(domain.NewAuditEvent(domain.SignInFailureEvent, "").WithEmail(email).WithSession(sessionID).WithError(err))
		return nil, domain.ErrCredentialRejected
	}

	err = o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		if err := s.Apply(domain.EventCredentialOK); err != nil {
			return err
		}
		s.UserID = account.ID
		s.Email = account.Email
		s.AccessToken = account.AccessToken
		s.JustRegistered = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.audit(domain.NewAuditEvent(domain.SignInEvent, account.ID).WithEmail(email).WithSession(sessionID))
	return account, nil
}

// SignInWithEmailLink implements domain.Orchestrator
func (o *OrchestratorImpl) SignInWithEmailLink(ctx context.Context, sessionID, email string) error {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return err
	}
	if _, err := domain.Transition(snapshot.Stage, domain.EventEmailLinkSent); err != nil {
		return err
	}

	if err := o.provider.SignInWithEmailLink(ctx, email, o.config.RedirectTo); err != nil {
		return fmt.Errorf("email link delivery: %w", err)
	}

	return o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		if err := s.Apply(domain.EventEmailLinkSent); err != nil {
			return err
		}
		s.Email = email
		return nil
	})
}

// RegisterAccount implements domain.Orchestrator. Phone format and password
// strength are validated locally before the provider is contacted. A
// credential that was created but whose ledger write failed is surfaced as
// ErrLedgerWriteFailed so an operator is alerted instead of retrying
// silently.
func (o *OrchestratorImpl) RegisterAccount(ctx context.Context, sessionID, email, password, phone string) (*domain.Account, error) {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Transition(snapshot.Stage, domain.EventRegistered); err != nil {
		return nil, err
	}

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	normalized, err := o.normalizer.Normalize(phone)
	if err != nil {
		return nil, err
	}

	account, err := o.provider.SignUp(ctx, email, password, map[string]string{"phone": normalized})
	if err != nil {
		return nil, err
	}

	record := &domain.VerificationRecord{
		UserID:        account.ID,
		PhoneNumber:   normalized,
		PhoneVerified: false,
	}
	if err := o.ledger.Upsert(ctx, record); err != nil {
		o.audit(domain.NewAuditEvent(domain.LedgerWriteFailureEvent, account.ID).WithPhone(normalized).WithSession(sessionID).WithError(err))
		return account, fmt.Errorf("account %s created but not recorded: %w", account.ID, domain.ErrLedgerWriteFailed)
	}

	err = o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		if err := s.Apply(domain.EventRegistered); err != nil {
			return err
		}
		s.UserID = account.ID
		s.Email = account.Email
		s.AccessToken = account.AccessToken
		s.PendingPhone = normalized
		s.JustRegistered = true
		return nil
	})
	if err != nil {
		return account, err
	}

	o.audit(domain.NewAuditEvent(domain.RegistrationEvent, account.ID).WithEmail(email).WithPhone(normalized).WithSession(sessionID))

	if err := o.sendChallenge(ctx, sessionID, normalized, true); err != nil {
		// The account and ledger row exist; the session stays in otp_sent
		// with no cooldown so the user can request a resend.
		return account, err
	}
	return account, nil
}

// RequestPhoneChallenge implements domain.Orchestrator. On the sign-in path
// the phone must equal the number on the user's ledger record; mismatches
// are rejected before any code is sent.
func (o *OrchestratorImpl) RequestPhoneChallenge(ctx context.Context, sessionID, phone string) error {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return err
	}
	if _, err := domain.Transition(snapshot.Stage, domain.EventChallengeSent); err != nil {
		return err
	}

	normalized, err := o.normalizer.Normalize(phone)
	if err != nil {
		return err
	}

	if snapshot.CooldownRemaining > 0 {
		return domain.ErrRateLimited
	}

	if !snapshot.JustRegistered {
		record, err := o.ledger.Find(ctx, snapshot.UserID)
		if err != nil {
			// No record means there is nothing to match against; the
			// challenge is refused rather than sent to an unknown number.
			return domain.ErrPhoneMismatch
		}
		if record.PhoneNumber != normalized {
			o.audit(domain.NewAuditEvent(domain.PhoneChallengeRejected, snapshot.UserID).WithPhone(normalized).WithSession(sessionID).WithError(domain.ErrPhoneMismatch))
			return domain.ErrPhoneMismatch
		}
	}

	return o.sendChallenge(ctx, sessionID, normalized, snapshot.JustRegistered)
}

// sendChallenge asks the provider to deliver a code and restarts the
// cooldown. createUser carries the shouldCreateUser semantics: true only
// immediately after sign-up.
func (o *OrchestratorImpl) sendChallenge(ctx context.Context, sessionID, phone string, createUser bool) error {
	if err := o.provider.SendPhoneOTP(ctx, phone, createUser); err != nil {
		return fmt.Errorf("challenge delivery: %w", err)
	}

	err := o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		if err := s.Apply(domain.EventChallengeSent); err != nil {
			return err
		}
		s.PendingPhone = phone
		return nil
	})
	if err != nil {
		return err
	}

	o.sessions.StartCooldown(sessionID)
	o.audit(domain.NewAuditEvent(domain.PhoneChallengeRequest, "").WithPhone(phone).WithSession(sessionID))
	return nil
}

// SubmitChallengeCode implements domain.Orchestrator. The six-digit format
// is checked locally; malformed codes fail fast without a provider call.
// Rejected codes leave the stage in otp_sent so the user may retry without
// a resend until the cooldown elapses.
func (o *OrchestratorImpl) SubmitChallengeCode(ctx context.Context, sessionID, code string) error {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return err
	}
	if _, err := domain.Transition(snapshot.Stage, domain.EventCodeAccepted); err != nil {
		return err
	}

	if !codePattern.MatchString(code) {
		return domain.ErrCodeFormatInvalid
	}

	account, err := o.provider.VerifyPhoneOTP(ctx, snapshot.PendingPhone, code)
	if err != nil {
		_ = o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
			return s.Apply(domain.EventCodeRejected)
		})
		o.audit(domain.NewAuditEvent(domain.PhoneVerificationFailure, snapshot.UserID).WithPhone(snapshot.PendingPhone).WithSession(sessionID).WithError(err))
		if isChallengeError(err) {
			return err
		}
		return domain.ErrCodeRejected
	}

	userID := snapshot.UserID
	if userID == "" && account != nil {
		userID = account.ID
	}

	record := &domain.VerificationRecord{
		UserID:        userID,
		PhoneNumber:   snapshot.PendingPhone,
		PhoneVerified: true,
	}
	if err := o.ledger.Upsert(ctx, record); err != nil {
		// The provider accepted the code but the durable record was not
		// written. The session stays gated and the inconsistency is
		// surfaced for operator follow-up.
		o.audit(domain.NewAuditEvent(domain.LedgerWriteFailureEvent, userID).WithPhone(snapshot.PendingPhone).WithSession(sessionID).WithError(err))
		return fmt.Errorf("code accepted for user %s: %w", userID, domain.ErrLedgerWriteFailed)
	}

	err = o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		if err := s.Apply(domain.EventCodeAccepted); err != nil {
			return err
		}
		s.UserID = userID
		if account != nil {
			s.AccessToken = account.AccessToken
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.audit(domain.NewAuditEvent(domain.PhoneVerifiedEvent, userID).WithPhone(snapshot.PendingPhone).WithSession(sessionID))
	return nil
}

// IsFullyVerified implements domain.Orchestrator. Absence of a ledger
// record is never treated as verified.
func (o *OrchestratorImpl) IsFullyVerified(ctx context.Context, userID string) bool {
	record, err := o.ledger.Find(ctx, userID)
	if err != nil {
		return false
	}
	return record.PhoneVerified
}

// SignOut implements domain.Orchestrator
func (o *OrchestratorImpl) SignOut(ctx context.Context, sessionID string) error {
	snapshot, err := o.sessions.Snapshot(sessionID)
	if err != nil {
		return err
	}

	if snapshot.AccessToken != "" {
		if err := o.provider.SignOut(ctx, snapshot.AccessToken); err != nil {
			log.Printf("SIGN_OUT: provider signout failed for session %s: %v", sessionID, err)
		}
	}

	err = o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		if err := s.Apply(domain.EventSignedOut); err != nil {
			return err
		}
		s.UserID = ""
		s.Email = ""
		s.AccessToken = ""
		s.PendingPhone = ""
		s.CooldownRemaining = 0
		s.JustRegistered = false
		return nil
	})
	if err != nil {
		return err
	}

	o.audit(domain.NewAuditEvent(domain.SignOutEvent, snapshot.UserID).WithSession(sessionID))
	return nil
}

// HandleAuthEvent implements domain.Orchestrator. Provider push events
// update the identity portion of the session only; an in-progress
// otp_sent or awaiting_phone_match stage is never silently overwritten.
func (o *OrchestratorImpl) HandleAuthEvent(sessionID string, event domain.AuthEvent) {
	err := o.sessions.WithSession(sessionID, func(s *domain.VerificationSession) error {
		switch event.Type {
		case domain.AuthEventSignedOut:
			if err := s.Apply(domain.EventSignedOut); err != nil {
				return err
			}
			s.UserID = ""
			s.Email = ""
			s.AccessToken = ""
			s.PendingPhone = ""
			s.JustRegistered = false
		case domain.AuthEventSignedIn, domain.AuthEventTokenRefreshed:
			if event.Account != nil {
				s.UserID = event.Account.ID
				s.Email = event.Account.Email
				s.AccessToken = event.Account.AccessToken
			}
			// A magic-link session completes its credential check here.
			if event.Type == domain.AuthEventSignedIn && s.Stage == domain.StageAwaitingPassword {
				return s.Apply(domain.EventCredentialOK)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("AUTH_EVENT: dropped %s for session %s: %v", event.Type, sessionID, err)
	}
}

// OAuthRedirectURL implements domain.Orchestrator
func (o *OrchestratorImpl) OAuthRedirectURL(provider string) (string, error) {
	return o.provider.OAuthRedirectURL(provider, o.config.RedirectTo)
}

func isChallengeError(err error) bool {
	for _, sentinel := range []error{
		domain.ErrMaxAttemptsExceeded,
		domain.ErrChallengeNotFound,
		domain.ErrRateLimited,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (o *OrchestratorImpl) audit(event *domain.AuditEvent) {
	log.Printf("%s: user_id=%s phone=%s session=%s success=%t error=%q timestamp=%s",
		event.EventType, event.UserID, event.Phone, event.SessionID,
		event.Success, event.ErrorMsg, event.Timestamp.Format(time.RFC3339))
}
