package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/go-saas-starter/docs" // Swagger docs (generated)
	"github.com/redmonkez12/go-saas-starter/internal/auth"
	"github.com/redmonkez12/go-saas-starter/internal/config"
	"github.com/redmonkez12/go-saas-starter/internal/database"
	"github.com/redmonkez12/go-saas-starter/internal/email"
	httpServer "github.com/redmonkez12/go-saas-starter/internal/http"
	"github.com/redmonkez12/go-saas-starter/internal/i18n"
	"github.com/redmonkez12/go-saas-starter/internal/logging"
	"github.com/redmonkez12/go-saas-starter/internal/ratelimit"
	"github.com/redmonkez12/go-saas-starter/internal/web"
)

// @title           Go SaaS Starter
// @version         1.0
// @description     Session-cookie authentication with email verification and password reset, plus localized pages.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

const sessionCleanupInterval = time.Hour

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// SMTP is only dialed when the first email goes out
	sender := email.NewLazySender(func() (email.Sender, error) {
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			User:     cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
			Secure:   cfg.Email.Secure,
		})
	})
	mailer := email.NewMailer(sender, cfg.Email.From)

	opts := auth.DefaultOptions(cfg.Auth.BaseURL)
	opts.TrustedOrigins = cfg.Auth.TrustedOrigins
	opts.SessionExpiresIn = cfg.Auth.SessionExpiresIn
	opts.SessionUpdateAge = cfg.Auth.SessionUpdateAge
	opts.SecureCookies = !cfg.Server.IsDevelopment()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("invalid auth options: %w", err)
	}

	storage := auth.NewBunStorage(db)
	authService := auth.NewService(storage, mailer, auth.NewRedisSessionCache(redisClient), &opts, logger)

	sealer, err := auth.NewCookieSealer(cfg.Auth.Secret, opts.SecureCookies)
	if err != nil {
		return fmt.Errorf("failed to initialize cookie sealer: %w", err)
	}

	rateLimiter := ratelimit.NewLimiter(redisClient)

	authHandler := auth.NewHandler(authService, sealer, rateLimiter)
	authMiddleware := auth.NewMiddleware(authService, sealer, localizedSignIn)

	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load message catalogs: %w", err)
	}

	origin := cfg.Server.AppURL
	if origin == "" {
		origin = cfg.Auth.BaseURL
	}
	pages, err := web.NewHandler(authService, sealer, catalog, origin, web.WithRateLimiter(rateLimiter))
	if err != nil {
		return fmt.Errorf("failed to initialize pages: %w", err)
	}

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, pages, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	go cleanupSessions(ctx, auth.NewSessionRepository(db), logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRedis connects to Redis and verifies the connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

func localizedSignIn(r *http.Request) string {
	return i18n.Path(i18n.FromContext(r.Context()), "/sign-in")
}

// cleanupSessions deletes expired sessions until ctx ends.
func cleanupSessions(ctx context.Context, repo *auth.SessionRepository, logger *logging.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanupExpired(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err.Error())
				continue
			}
			if n > 0 {
				logger.Info("expired sessions removed", "count", n)
			}
		}
	}
}
