package app

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/verifysvc/internal/config"
	httpx "github.com/you/verifysvc/internal/http"
	"github.com/you/verifysvc/internal/http/handlers"
	"github.com/you/verifysvc/internal/http/middleware"
)

func Run(cfg *config.Config) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	container, err := NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	if container.RedisClient != nil {
		if err := container.RedisClient.Ping(context.Background()).Err(); err != nil {
			return err
		}
	}

	authH := handlers.NewAuthHandlers(container.Orchestrator, container.Ledger)
	routeH := &handlers.RouteHandlers{E: container.RouteEnforcer}
	guard := middleware.NewGuard(container.Orchestrator, container.RouteEnforcer, cfg.VerifyPath, cfg.HomePath)

	r := httpx.BuildRouter(authH, routeH, guard)

	if policies, _ := container.RouteEnforcer.GetPolicy(); len(policies) == 0 {
		container.RouteEnforcer.AddPolicy("verified", "/store/*", "(GET|POST|PUT|DELETE)")
		log.Println("guard: seeded default route policy")
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (provider=%s)", addr, cfg.ProviderMode)
	return http.ListenAndServe(addr, r)
}
