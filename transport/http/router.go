package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muralhq/walletgate/ports"
	"github.com/muralhq/walletgate/service"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
	Authz    *service.AuthzService
	Janitor  *service.Janitor
	Attempts ports.AttemptLog
	Log      *slog.Logger

	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration

	// CleanupSecret gates the operational cleanup endpoints. When empty the
	// endpoints are not mounted at all.
	CleanupSecret string
}

// SetupRouter sets up the Gin router.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	handlers := NewAuthHandlers(
		cfg.Auth, cfg.Sessions, cfg.Janitor, cfg.Attempts, cfg.Log,
		cfg.CookieName, cfg.CookieSecure, cfg.SessionTTL,
	)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
		auth.GET("/session",
			SessionMiddleware(cfg.Sessions, cfg.CookieName, false, cfg.Log),
			handlers.Session)
		auth.POST("/logout", handlers.Logout)
	}

	admin := router.Group("/admin")
	admin.Use(AdminMiddleware(cfg.Authz))
	{
		admin.GET("/attempts", handlers.ListAttempts)
	}

	if cfg.CleanupSecret != "" {
		internal := router.Group("/internal/auth")
		internal.Use(OperatorSecretMiddleware(cfg.CleanupSecret))
		{
			internal.POST("/cleanup", handlers.Cleanup)
			internal.GET("/cleanup", handlers.CleanupDryRun)
		}
	}

	return router
}
