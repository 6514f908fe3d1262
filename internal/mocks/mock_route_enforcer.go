package mocks

import "github.com/you/verifysvc/domain"

// MockRouteEnforcer implements domain.RouteEnforcer for testing
type MockRouteEnforcer struct {
	AddPolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc   func(rvals ...interface{}) (bool, error)
	GetPolicyFunc func() ([][]string, error)
}

// NewMockRouteEnforcer creates a new MockRouteEnforcer with default behaviors
func NewMockRouteEnforcer() *MockRouteEnforcer {
	return &MockRouteEnforcer{}
}

func (m *MockRouteEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}
	return true, nil
}

func (m *MockRouteEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}
	// Default behavior: only verified sessions pass
	if len(rvals) > 0 {
		if stage, ok := rvals[0].(string); ok {
			return stage == string(domain.StageVerified), nil
		}
	}
	return false, nil
}

func (m *MockRouteEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}
	return [][]string{}, nil
}

// Compile-time interface compliance verification
var _ domain.RouteEnforcer = (*MockRouteEnforcer)(nil)
