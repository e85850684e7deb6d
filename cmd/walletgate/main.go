package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/muralhq/walletgate/adapters/directory"
	"github.com/muralhq/walletgate/adapters/events"
	"github.com/muralhq/walletgate/adapters/limiter"
	"github.com/muralhq/walletgate/adapters/store"
	"github.com/muralhq/walletgate/adapters/tokenizer"
	"github.com/muralhq/walletgate/internal/config"
	"github.com/muralhq/walletgate/ports"
	"github.com/muralhq/walletgate/service"
	transport "github.com/muralhq/walletgate/transport/http"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signKey, err := loadSigningKey(cfg.SessionSigningKeyPEM, log)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pg, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pg.Close()

	var (
		rateLimiter ports.RateLimiter
		publisher   ports.EventPublisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		rateLimiter = limiter.NewRedisLimiter(redisClient, cfg.RateLimit, cfg.RateLimitWindow)

		wmPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			watermill.NewSlogLogger(log),
		)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = events.NewWatermillPublisher(wmPublisher)
	} else {
		log.Warn("REDIS_URL not set; rate limiting is per-instance and events are dropped")
		rateLimiter = limiter.NewMemoryLimiter(cfg.RateLimit, cfg.RateLimitWindow)
		publisher = events.NewNoopPublisher()
	}

	// The user directory is an external service; the in-process adapter
	// stands in until the directory client is wired. A short read-through
	// cache keeps verification off the hot path either way.
	userDirectory := directory.NewCachedDirectory(directory.NewMemoryDirectory(), 30*time.Second)

	sessionTokenizer := tokenizer.NewJWTTokenizer(signKey)

	authService := service.NewAuthService(
		pg, pg, userDirectory, rateLimiter, publisher, log,
		cfg.ChallengeDomain, cfg.ChallengeTTL,
	)
	sessionService := service.NewSessionService(
		sessionTokenizer, pg, userDirectory, publisher, log, cfg.SessionTTL,
	)
	authzService := service.NewAuthzService(
		userDirectory, log, []byte(cfg.OAuthHMACSecret), cfg.RootAdminAddress,
	)
	janitor := service.NewJanitor(
		pg, pg, publisher, log,
		cfg.UsedNonceRetention, cfg.AttemptRetention,
	)

	go janitor.Run(ctx, cfg.CleanupInterval)

	router := transport.SetupRouter(transport.RouterConfig{
		Auth:          authService,
		Sessions:      sessionService,
		Authz:         authzService,
		Janitor:       janitor,
		Attempts:      pg,
		Log:           log,
		CookieName:    cfg.SessionCookieName,
		CookieSecure:  cfg.SessionCookieSecure,
		SessionTTL:    cfg.SessionTTL,
		CleanupSecret: cfg.CleanupSecret,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadSigningKey parses a PEM-encoded EC private key, or generates an
// ephemeral one when none is configured. Ephemeral keys invalidate all
// sessions on restart, acceptable for development only.
func loadSigningKey(pemStr string, log *slog.Logger) (*ecdsa.PrivateKey, error) {
	if pemStr == "" {
		log.Warn("SESSION_SIGNING_KEY_PEM not set; using an ephemeral key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}

	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}

	return key, nil
}
