package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/verifysvc/domain"
	"github.com/you/verifysvc/internal/http/middleware"
)

// AuthHandlers exposes the verification flow over HTTP. Every response
// includes the session's current stage so clients can render the right step
// without tracking state themselves.
type AuthHandlers struct {
	orchestrator domain.Orchestrator
	ledger       domain.VerificationLedger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(orchestrator domain.Orchestrator, ledger domain.VerificationLedger) *AuthHandlers {
	return &AuthHandlers{orchestrator: orchestrator, ledger: ledger}
}

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
}

// LoginRequest represents a password sign-in request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MagicLinkRequest represents an email-link sign-in request
type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ChallengeRequest represents a phone challenge request
type ChallengeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// ChallengeVerifyRequest represents a code submission
type ChallengeVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// sessionID extracts the verification session id, opening a fresh session
// when the client has none yet.
func (h *AuthHandlers) sessionID(c *gin.Context) string {
	id := c.GetHeader(middleware.SessionHeader)
	if id == "" {
		if cookie, err := c.Cookie("verify_session"); err == nil {
			id = cookie
		}
	}
	if id == "" {
		session := h.orchestrator.OpenSession()
		id = session.ID
		c.Header(middleware.SessionHeader, id)
	}
	return id
}

func (h *AuthHandlers) sessionPayload(sessionID string) gin.H {
	session, err := h.orchestrator.Session(sessionID)
	if err != nil {
		return gin.H{"session_id": sessionID, "stage": domain.StageAnonymous}
	}
	payload := gin.H{
		"session_id":         session.ID,
		"stage":              session.Stage,
		"cooldown_remaining": session.CooldownRemaining,
	}
	if session.UserID != "" {
		payload["user_id"] = session.UserID
	}
	if session.Email != "" {
		payload["email"] = session.Email
	}
	return payload
}

// Session reports the current stage and resend cooldown
func (h *AuthHandlers) Session(c *gin.Context) {
	sessionID := h.sessionID(c)
	c.JSON(http.StatusOK, gin.H{"data": h.sessionPayload(sessionID)})
}

// Register handles account sign-up
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := h.sessionID(c)
	account, err := h.orchestrator.RegisterAccount(c.Request.Context(), sessionID, req.Email, req.Password, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with uppercase, lowercase, number and special character"})
		case errors.Is(err, domain.ErrInvalidInputFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid 10-digit phone number"})
		case errors.Is(err, domain.ErrAccountAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "Account already exists"})
		case errors.Is(err, domain.ErrLedgerWriteFailed):
			// Account exists but the verification record is missing; the
			// session stays gated until a later write succeeds.
			c.JSON(http.StatusAccepted, gin.H{
				"data":  h.sessionPayload(sessionID),
				"error": "Registration succeeded but verification tracking is delayed",
			})
		case errors.Is(err, domain.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait before requesting another code"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register account"})
		}
		return
	}

	data := h.sessionPayload(sessionID)
	data["user_id"] = account.ID
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// Login handles password sign-in
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := h.sessionID(c)
	_, err := h.orchestrator.SignInWithCredential(c.Request.Context(), sessionID, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCredentialRejected):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case errors.Is(err, domain.ErrStageViolation):
			c.JSON(http.StatusConflict, gin.H{"error": "Sign-in is not available at this step"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-in failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.sessionPayload(sessionID)})
}

// MagicLink handles email-link sign-in
func (h *AuthHandlers) MagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := h.sessionID(c)
	if err := h.orchestrator.SignInWithEmailLink(c.Request.Context(), sessionID, req.Email); err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Please wait before requesting another link"})
		case errors.Is(err, domain.ErrStageViolation):
			c.JSON(http.StatusConflict, gin.H{"error": "Sign-in is not available at this step"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send sign-in link"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"message": "Check your email for the sign-in link",
		"session": h.sessionPayload(sessionID),
	}})
}

// Challenge handles phone challenge requests, both first sends and resends
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := h.sessionID(c)
	if err := h.orchestrator.RequestPhoneChallenge(c.Request.Context(), sessionID, req.Phone); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInputFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid 10-digit phone number"})
		case errors.Is(err, domain.ErrPhoneMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": "Phone number does not match our records"})
		case errors.Is(err, domain.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Please wait before requesting another code",
				"data":  h.sessionPayload(sessionID),
			})
		case errors.Is(err, domain.ErrStageViolation):
			c.JSON(http.StatusConflict, gin.H{"error": "Sign in before requesting a code"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send verification code"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.sessionPayload(sessionID)})
}

// ChallengeVerify handles code submission
func (h *AuthHandlers) ChallengeVerify(c *gin.Context) {
	var req ChallengeVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := h.sessionID(c)
	if err := h.orchestrator.SubmitChallengeCode(c.Request.Context(), sessionID, req.Code); err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeFormatInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Code must be 6 digits"})
		case errors.Is(err, domain.ErrCodeRejected):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code"})
		case errors.Is(err, domain.ErrChallengeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Code expired, request a new one"})
		case errors.Is(err, domain.ErrMaxAttemptsExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, request a new code"})
		case errors.Is(err, domain.ErrLedgerWriteFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification could not be recorded, try again"})
		case errors.Is(err, domain.ErrStageViolation):
			c.JSON(http.StatusConflict, gin.H{"error": "Request a code before submitting one"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Verification failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.sessionPayload(sessionID)})
}

// Verified reports the persisted verification flag for a user
func (h *AuthHandlers) Verified(c *gin.Context) {
	userID := c.Param("user_id")
	record, err := h.ledger.Find(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationNotFound) {
			c.JSON(http.StatusOK, gin.H{"data": gin.H{
				"user_id":        userID,
				"phone_verified": false,
			}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load verification record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id":        record.UserID,
		"phone":          record.PhoneNumber,
		"phone_verified": record.PhoneVerified,
	}})
}

// OAuthRedirect returns the provider redirect URL for OAuth sign-in
func (h *AuthHandlers) OAuthRedirect(c *gin.Context) {
	provider := c.Param("provider")
	redirect, err := h.orchestrator.OAuthRedirectURL(provider)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInputFormat):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
		case errors.Is(err, domain.ErrProviderUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "OAuth sign-in is not available"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build redirect URL"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"redirect_url": redirect}})
}

// Logout handles sign-out
func (h *AuthHandlers) Logout(c *gin.Context) {
	sessionID := h.sessionID(c)
	if err := h.orchestrator.SignOut(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Signed out"}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign-out failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"message": "Signed out",
		"session": h.sessionPayload(sessionID),
	}})
}
