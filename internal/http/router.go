package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/verifysvc/internal/http/handlers"
	"github.com/you/verifysvc/internal/http/middleware"
)

func BuildRouter(ah *handlers.AuthHandlers, rh *handlers.RouteHandlers, guard *middleware.Guard) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	auth := r.Group("/auth").Use(guard.Public())
	auth.GET("/session", ah.Session)
	auth.POST("/register", ah.Register)
	auth.POST("/login", ah.Login)
	auth.POST("/magic-link", ah.MagicLink)
	auth.POST("/challenge", ah.Challenge)
	auth.POST("/challenge/verify", ah.ChallengeVerify)
	auth.GET("/oauth/:provider", ah.OAuthRedirect)
	auth.GET("/verified/:user_id", ah.Verified)

	r.POST("/auth/logout", ah.Logout)

	store := r.Group("/store").Use(guard.Protected())
	store.GET("/*path", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Storefront access granted",
			"path":    c.Param("path"),
			"user_id": c.GetString("user_id"),
		})
	})

	adm := r.Group("/admin")
	adm.GET("/routes", rh.List)

	return r
}
