package app

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/you/verifysvc/domain"
	"github.com/you/verifysvc/internal/config"
	"github.com/you/verifysvc/internal/infrastructure/auth"
	"github.com/you/verifysvc/internal/infrastructure/database"
	"github.com/you/verifysvc/internal/infrastructure/identity"
	"github.com/you/verifysvc/internal/infrastructure/ledger"
	"github.com/you/verifysvc/internal/infrastructure/notifications"
	"github.com/you/verifysvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config

	DB          *gorm.DB
	RedisClient *redis.Client

	Ledger          domain.VerificationLedger
	Provider        domain.IdentityProvider
	NotificationSvc domain.NotificationService
	TokenSvc        domain.TokenService
	RouteEnforcer   domain.RouteEnforcer
	Sessions        *services.SessionManager
	Orchestrator    domain.Orchestrator
}

// NewContainer creates and initializes all dependencies
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	if err := container.initDatabase(); err != nil {
		return nil, err
	}
	container.initServices()

	if err := container.initProvider(); err != nil {
		return nil, err
	}
	if err := container.initGuard(); err != nil {
		return nil, err
	}

	container.Sessions = services.NewSessionManager(cfg.CooldownSeconds)
	container.Orchestrator = services.NewOrchestrator(
		container.Provider,
		container.Ledger,
		container.Sessions,
		services.OrchestratorConfig{
			CooldownSeconds: cfg.CooldownSeconds,
			RegionPrefix:    cfg.RegionPrefix,
			RedirectTo:      cfg.RedirectTo,
		},
	)

	return container, nil
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.DB = db
	c.Ledger = ledger.NewRepository(db)
	return nil
}

func (c *Container) initServices() {
	c.NotificationSvc = notifications.NewTwilioService(
		c.Config.TwilioSID,
		c.Config.TwilioToken,
		c.Config.TwilioFrom,
	)
	c.TokenSvc = auth.NewJWTService(
		c.Config.JWTSecret,
		c.Config.JWTIssuer,
		c.Config.AccessTTL,
		c.Config.RefreshTTL,
	)
}

// initProvider selects the identity backing. Hosted mode needs no Redis;
// the embedded provider keeps its challenges there.
func (c *Container) initProvider() error {
	switch c.Config.ProviderMode {
	case "hosted":
		if c.Config.ProviderURL == "" {
			return fmt.Errorf("provider mode is hosted but provider.url is empty")
		}
		c.Provider = identity.NewHostedProvider(c.Config.ProviderURL, c.Config.ProviderAnonKey)
		return nil
	case "local":
		c.RedisClient = database.NewRedis(
			c.Config.RedisAddr,
			c.Config.RedisPassword,
			c.Config.RedisDB,
		).Client

		challenges := identity.NewChallengeStore(c.RedisClient, identity.ChallengeConfig{
			Length:       c.Config.ChallengeLength,
			TTL:          c.Config.ChallengeTTL,
			MaxAttempts:  c.Config.MaxAttempts,
			ResendWindow: time.Duration(c.Config.CooldownSeconds) * time.Second,
		})
		c.Provider = identity.NewLocalProvider(
			identity.NewAccountRepository(c.DB),
			challenges,
			auth.NewPasswordService(),
			c.TokenSvc,
			c.NotificationSvc,
		)
		return nil
	default:
		return fmt.Errorf("unknown provider mode %q", c.Config.ProviderMode)
	}
}

// initGuard builds the route enforcer and seeds it with the configured
// stage policies.
func (c *Container) initGuard() error {
	enforcer, err := auth.NewRouteEnforcer()
	if err != nil {
		return err
	}
	for _, route := range c.Config.GuardRoutes {
		if _, err := enforcer.AddPolicy(route.Stage, route.Path, route.Methods); err != nil {
			return fmt.Errorf("failed to add guard route %s %s: %w", route.Stage, route.Path, err)
		}
	}
	c.RouteEnforcer = enforcer
	return nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
