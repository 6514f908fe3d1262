package mocks

import (
	"sync"

	"github.com/you/verifysvc/domain"
)

// SentMessage records one delivered notification for assertions.
type SentMessage struct {
	To      string
	Subject string
	Message string
}

// MockNotificationService implements domain.NotificationService for testing
type MockNotificationService struct {
	mu sync.Mutex

	SendSMSFunc   func(to, message string) error
	SendEmailFunc func(to, subject, body string) error

	SentSMS    []SentMessage
	SentEmails []SentMessage
}

// NewMockNotificationService creates a new MockNotificationService
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) SendSMS(to, message string) error {
	m.mu.Lock()
	m.SentSMS = append(m.SentSMS, SentMessage{To: to, Message: message})
	m.mu.Unlock()
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(to, message)
	}
	return nil
}

func (m *MockNotificationService) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	m.SentEmails = append(m.SentEmails, SentMessage{To: to, Subject: subject, Message: body})
	m.mu.Unlock()
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(to, subject, body)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
