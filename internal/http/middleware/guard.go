package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/verifysvc/domain"
)

// SessionHeader carries the verification session id on every request.
const SessionHeader = "X-Verification-Session"

// Guard gates routes on the session's verification stage. Sessions without
// an id, and ids the orchestrator does not know, are treated as anonymous
// rather than rejected outright.
type Guard struct {
	orchestrator domain.Orchestrator
	enforcer     domain.RouteEnforcer
	verifyPath   string
	homePath     string
}

// NewGuard creates the session guard middleware
func NewGuard(orchestrator domain.Orchestrator, enforcer domain.RouteEnforcer, verifyPath, homePath string) *Guard {
	return &Guard{
		orchestrator: orchestrator,
		enforcer:     enforcer,
		verifyPath:   verifyPath,
		homePath:     homePath,
	}
}

// Protected enforces the stage policy for the request path and method.
// Denied browsers are redirected to the verification flow; API clients get
// a 403 with the stage that was seen.
func (g *Guard) Protected() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := g.resolve(c)

		allowed, err := g.enforcer.Enforce(string(session.Stage), c.Request.URL.Path, c.Request.Method)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}

		if !allowed {
			log.Printf("%s: session_id=%s stage=%s path=%s method=%s timestamp=%s",
				domain.AccessDeniedEvent, session.ID, session.Stage,
				c.Request.URL.Path, c.Request.Method,
				time.Now().UTC().Format(time.RFC3339))
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, g.verifyPath)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Verification required",
				"stage": session.Stage,
			})
			return
		}

		c.Set("session_id", session.ID)
		c.Set("user_id", session.UserID)
		c.Set("stage", string(session.Stage))
		c.Next()
	}
}

// Public marks routes that belong to the verification flow itself. A fully
// verified session has no business there and is bounced home.
func (g *Guard) Public() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := g.resolve(c)

		if session.Stage == domain.StageVerified && wantsHTML(c) {
			c.Redirect(http.StatusFound, g.homePath)
			c.Abort()
			return
		}

		c.Set("session_id", session.ID)
		c.Next()
	}
}

// resolve maps the request to its verification session, falling back to an
// anonymous placeholder when the id is absent or unknown.
func (g *Guard) resolve(c *gin.Context) *domain.VerificationSession {
	sessionID := c.GetHeader(SessionHeader)
	if sessionID == "" {
		if cookie, err := c.Cookie("verify_session"); err == nil {
			sessionID = cookie
		}
	}

	if sessionID != "" {
		if session, err := g.orchestrator.Session(sessionID); err == nil {
			return session
		}
	}

	return &domain.VerificationSession{ID: sessionID, Stage: domain.StageAnonymous}
}

func wantsHTML(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/html")
}
