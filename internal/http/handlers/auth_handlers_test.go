package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/verifysvc/domain"
	"github.com/you/verifysvc/internal/http/middleware"
	"github.com/you/verifysvc/internal/mocks"
	"github.com/you/verifysvc/internal/services"
)

type handlerFixture struct {
	router   *gin.Engine
	provider *mocks.MockIdentityProvider
	ledger   *mocks.MockLedger
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := mocks.NewMockIdentityProvider()
	ledger := mocks.NewMockLedger()
	sessions := services.NewSessionManager(30)
	orchestrator := services.NewOrchestrator(provider, ledger, sessions, services.OrchestratorConfig{
		CooldownSeconds: 30,
		RegionPrefix:    "+1",
		RedirectTo:      "http://localhost:3000/",
	})

	ah := NewAuthHandlers(orchestrator, ledger)
	guard := middleware.NewGuard(orchestrator, mocks.NewMockRouteEnforcer(), "/auth", "/")

	router := gin.New()
	auth := router.Group("/auth").Use(guard.Public())
	auth.GET("/session", ah.Session)
	auth.POST("/register", ah.Register)
	auth.POST("/login", ah.Login)
	auth.POST("/magic-link", ah.MagicLink)
	auth.POST("/challenge", ah.Challenge)
	auth.POST("/challenge/verify", ah.ChallengeVerify)
	auth.GET("/oauth/:provider", ah.OAuthRedirect)
	auth.GET("/verified/:user_id", ah.Verified)
	router.POST("/auth/logout", ah.Logout)

	return &handlerFixture{router: router, provider: provider, ledger: ledger}
}

func (f *handlerFixture) request(t *testing.T, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	data, _ := payload["data"].(map[string]interface{})
	return data
}

func TestAuthHandlers_SessionOpensOnFirstContact(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodGet, "/auth/session", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	sessionID := w.Header().Get(middleware.SessionHeader)
	assert.NotEmpty(t, sessionID)

	data := decodeData(t, w)
	assert.Equal(t, "anonymous", data["stage"])
}

func TestAuthHandlers_RegisterFlow(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "Str0ng!pass",
		Phone:    "(415) 555-0134",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sessionID := w.Header().Get(middleware.SessionHeader)
	require.NotEmpty(t, sessionID)

	data := decodeData(t, w)
	assert.Equal(t, "otp_sent", data["stage"])
	assert.Equal(t, float64(30), data["cooldown_remaining"])
	assert.Equal(t, 1, f.provider.SendPhoneOTPCalls)

	// Submitting the default valid code completes verification.
	w = f.request(t, http.MethodPost, "/auth/challenge/verify", sessionID, ChallengeVerifyRequest{Code: "123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data = decodeData(t, w)
	assert.Equal(t, "verified", data["stage"])

	record := f.ledger.Record("user-1")
	require.NotNil(t, record)
	assert.True(t, record.PhoneVerified)
}

func TestAuthHandlers_RegisterRejectsWeakPassword(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "short",
		Phone:    "4155550134",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.provider.SignUpCalls)
}

func TestAuthHandlers_RegisterConflict(t *testing.T) {
	f := newHandlerFixture(t)
	f.provider.SignUpFunc = func(ctx context.Context, email, password string, metadata map[string]string) (*domain.Account, error) {
		return nil, domain.ErrAccountAlreadyExists
	}

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "taken@example.com",
		Password: "Str0ng!pass",
		Phone:    "4155550134",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlers_LoginThenChallenge(t *testing.T) {
	f := newHandlerFixture(t)
	f.ledger.Seed("user-1", "+14155550134", false)

	w := f.request(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "user@example.com",
		Password: "Str0ng!pass",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sessionID := w.Header().Get(middleware.SessionHeader)

	data := decodeData(t, w)
	assert.Equal(t, "awaiting_phone_match", data["stage"])

	w = f.request(t, http.MethodPost, "/auth/challenge", sessionID, ChallengeRequest{Phone: "415-555-0134"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data = decodeData(t, w)
	assert.Equal(t, "otp_sent", data["stage"])
}

func TestAuthHandlers_LoginRejected(t *testing.T) {
	f := newHandlerFixture(t)
	f.provider.SignInWithPasswordFunc = func(ctx context.Context, email, password string) (*domain.Account, error) {
		return nil, domain.ErrCredentialRejected
	}

	w := f.request(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlers_ChallengePhoneMismatch(t *testing.T) {
	f := newHandlerFixture(t)
	f.ledger.Seed("user-1", "+14155550134", false)

	w := f.request(t, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    "user@example.com",
		Password: "Str0ng!pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	sessionID := w.Header().Get(middleware.SessionHeader)

	w = f.request(t, http.MethodPost, "/auth/challenge", sessionID, ChallengeRequest{Phone: "4155559999"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, f.provider.SendPhoneOTPCalls)
}

func TestAuthHandlers_ChallengeResendRateLimited(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "Str0ng!pass",
		Phone:    "4155550134",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := w.Header().Get(middleware.SessionHeader)

	w = f.request(t, http.MethodPost, "/auth/challenge", sessionID, ChallengeRequest{Phone: "4155550134"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, f.provider.SendPhoneOTPCalls)
}

func TestAuthHandlers_VerifyBadCodeFormat(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "Str0ng!pass",
		Phone:    "4155550134",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := w.Header().Get(middleware.SessionHeader)

	w = f.request(t, http.MethodPost, "/auth/challenge/verify", sessionID, ChallengeVerifyRequest{Code: "12ab56"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, f.provider.VerifyPhoneOTPCalls)
}

func TestAuthHandlers_VerifyRejectedCode(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "Str0ng!pass",
		Phone:    "4155550134",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := w.Header().Get(middleware.SessionHeader)

	w = f.request(t, http.MethodPost, "/auth/challenge/verify", sessionID, ChallengeVerifyRequest{Code: "000000"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The session may retry with the right code.
	w = f.request(t, http.MethodPost, "/auth/challenge/verify", sessionID, ChallengeVerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAuthHandlers_VerifyWithoutChallenge(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodGet, "/auth/session", "", nil)
	sessionID := w.Header().Get(middleware.SessionHeader)

	w = f.request(t, http.MethodPost, "/auth/challenge/verify", sessionID, ChallengeVerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlers_Verified(t *testing.T) {
	f := newHandlerFixture(t)
	f.ledger.Seed("user-7", "+14155550134", true)

	w := f.request(t, http.MethodGet, "/auth/verified/user-7", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["phone_verified"])

	// Absent records read as unverified, not as an error.
	w = f.request(t, http.MethodGet, "/auth/verified/nobody", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, false, data["phone_verified"])
}

func TestAuthHandlers_VerifiedLedgerOutage(t *testing.T) {
	f := newHandlerFixture(t)
	f.ledger.FindFunc = func(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
		return nil, errors.New("connection refused")
	}

	w := f.request(t, http.MethodGet, "/auth/verified/user-1", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandlers_OAuthRedirect(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodGet, "/auth/oauth/google", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Contains(t, data["redirect_url"], "google")
}

func TestAuthHandlers_Logout(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.request(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "Str0ng!pass",
		Phone:    "4155550134",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := w.Header().Get(middleware.SessionHeader)

	w = f.request(t, http.MethodPost, "/auth/logout", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodGet, "/auth/session", sessionID, nil)
	data := decodeData(t, w)
	assert.Equal(t, "anonymous", data["stage"])
}
