// Server runs the passwordless auth HTTP API.
// Configuration comes from the environment and an optional .env file; see internal/config.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"veo-auth-service/internal/audit"
	auditrepo "veo-auth-service/internal/audit/repository"
	authhandler "veo-auth-service/internal/auth/handler"
	authservice "veo-auth-service/internal/auth/service"
	challengerepo "veo-auth-service/internal/challenge/repository"
	"veo-auth-service/internal/config"
	"veo-auth-service/internal/db"
	"veo-auth-service/internal/devotp"
	devotphandler "veo-auth-service/internal/devotp/handler"
	healthhandler "veo-auth-service/internal/health/handler"
	instancehandler "veo-auth-service/internal/instance/handler"
	instancerepo "veo-auth-service/internal/instance/repository"
	magiclinkrepo "veo-auth-service/internal/magiclink/repository"
	membershiprepo "veo-auth-service/internal/membership/repository"
	"veo-auth-service/internal/notify"
	"veo-auth-service/internal/notify/email"
	"veo-auth-service/internal/notify/sms"
	"veo-auth-service/internal/observability/otel"
	"veo-auth-service/internal/ratelimit"
	"veo-auth-service/internal/security"
	"veo-auth-service/internal/server"
	"veo-auth-service/internal/server/middleware"
	sessionrepo "veo-auth-service/internal/session/repository"
	userrepo "veo-auth-service/internal/user/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "veo-auth-service", cfg.OTLPInsecure)
	if err != nil {
		logger.Error("otel", slog.String("error", err.Error()))
		os.Exit(1)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		logger.Error("JWT_PRIVATE_KEY", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		logger.Error("JWT_PUBLIC_KEY", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())

	users := userrepo.NewPostgresRepository(conn)
	challenges := challengerepo.NewPostgresRepository(conn)
	links := magiclinkrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	instances := instancerepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	auditLog := audit.NewLogger(audits, middleware.GetClientIP)

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.New(redisClient, ratelimit.Config{
			Max:    cfg.RateLimitMax,
			Window: cfg.LimiterWindow(),
		})
	}

	var devStore devotp.Store
	var devHandler *devotphandler.Handler
	if cfg.DevOTPEnabled {
		store := devotp.NewMemoryStore()
		devStore = store
		devHandler = devotphandler.NewHandler(store)
		logger.Warn("dev OTP endpoint enabled; do not use in production")
	}

	svc := authservice.NewAuthService(
		users, challenges, links, sessions,
		security.NewHasher(cfg.BcryptCost), tokens,
		notify.NewDispatcher(cfg.DispatchTimeout(), logger),
		sms.NewClient(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender),
		email.NewClient(cfg.MailAPIKey, cfg.MailBaseURL, cfg.MailFrom),
		limiter, auditLog, devStore,
		authservice.Config{
			ChallengeTTL:   cfg.ChallengeTTL(),
			MaxAttempts:    cfg.OTPMaxAttempts,
			LinkTTL:        cfg.LinkTTL(),
			LinkBaseURL:    cfg.MagicLinkBaseURL,
			SupersedeLinks: cfg.MagicLinkSupersede,
			RefreshTTL:     cfg.RefreshTTL(),
		},
	)

	router := server.NewRouter(server.Deps{
		Auth:     authhandler.NewHandler(svc, logger),
		Instance: instancehandler.NewHandler(instances, memberships, users, audits, logger),
		Health:   healthhandler.NewHandler(conn),
		DevOTP:   devHandler,
		AuthMW:   middleware.NewAuth(tokens, sessions),
		TenantMW: middleware.NewTenantResolver(instances, memberships, auditLog),
		Logger:   logger,
	})

	srv := server.New(cfg.HTTPAddr, router, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
