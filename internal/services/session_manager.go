package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/verifysvc/domain"
)

// SessionManager holds the in-memory per-tab verification sessions and
// drives their resend cooldowns. Sessions are never persisted; closing a
// session drops it and cancels its cooldown ticker.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	cooldownSeconds int
	tick            time.Duration
}

type sessionEntry struct {
	session        *domain.VerificationSession
	cancelCooldown context.CancelFunc
}

// NewSessionManager creates a manager whose cooldowns start at
// cooldownSeconds and tick once per second.
func NewSessionManager(cooldownSeconds int) *SessionManager {
	return &SessionManager{
		sessions:        make(map[string]*sessionEntry),
		cooldownSeconds: cooldownSeconds,
		tick:            time.Second,
	}
}

// NewSessionManagerWithTick is NewSessionManager with a custom tick
// interval, used by tests to run cooldowns quickly.
func NewSessionManagerWithTick(cooldownSeconds int, tick time.Duration) *SessionManager {
	m := NewSessionManager(cooldownSeconds)
	m.tick = tick
	return m
}

// Open creates a fresh anonymous session and returns a snapshot of it.
func (m *SessionManager) Open() *domain.VerificationSession {
	s := &domain.VerificationSession{
		ID:    uuid.NewString(),
		Stage: domain.StageAnonymous,
	}

	m.mu.Lock()
	m.sessions[s.ID] = &sessionEntry{session: s}
	m.mu.Unlock()

	snapshot := *s
	return &snapshot
}

// Snapshot returns a copy of the session, or ErrSessionNotFound.
func (m *SessionManager) Snapshot(sessionID string) (domain.VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		return domain.VerificationSession{}, domain.ErrSessionNotFound
	}
	return *entry.session, nil
}

// WithSession runs fn against the live session under the manager lock.
// All mutations go through here so the cooldown ticker and HTTP handlers
// never race on session fields.
func (m *SessionManager) WithSession(sessionID string, fn func(*domain.VerificationSession) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	return fn(entry.session)
}

// Close tears the session down: the cooldown goroutine is cancelled and any
// tick already in flight is dropped by the liveness check.
func (m *SessionManager) Close(sessionID string) {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok && entry.cancelCooldown != nil {
		entry.cancelCooldown()
	}
}

// StartCooldown resets the session's resend countdown to the configured
// start value and launches the once-per-tick decrement. A previous
// countdown for the same session is cancelled first.
func (m *SessionManager) StartCooldown(sessionID string) {
	m.mu.Lock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if entry.cancelCooldown != nil {
		entry.cancelCooldown()
	}
	ctx, cancel := context.WithCancel(context.Background())
	entry.cancelCooldown = cancel
	entry.session.CooldownRemaining = m.cooldownSeconds
	m.mu.Unlock()

	go m.runCooldown(ctx, sessionID)
}

func (m *SessionManager) runCooldown(ctx context.Context, sessionID string) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			entry, ok := m.sessions[sessionID]
			if !ok {
				// Session was torn down; drop the stale tick.
				m.mu.Unlock()
				return
			}
			if entry.session.CooldownRemaining > 0 {
				entry.session.CooldownRemaining--
			}
			done := entry.session.CooldownRemaining == 0
			m.mu.Unlock()
			if done {
				return
			}
		}
	}
}

// CooldownRemaining reports the seconds left before a resend is permitted;
// zero for unknown sessions.
func (m *SessionManager) CooldownRemaining(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[sessionID]
	if !ok {
		return 0
	}
	return entry.session.CooldownRemaining
}
