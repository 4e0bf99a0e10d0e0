package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-api/config"
	"clinic-api/database"
	adminapi "clinic-api/internal/api/admin"
	authapi "clinic-api/internal/api/auth"
	"clinic-api/internal/api/billing"
	"clinic-api/internal/api/health"
	"clinic-api/internal/api/response"
	stripewebhooks "clinic-api/internal/api/stripewebhook"
	usersapi "clinic-api/internal/api/users"
	routes "clinic-api/internal/app/http"
	"clinic-api/internal/app/http/middleware"
	"clinic-api/internal/domain/subscriptions"
	"clinic-api/internal/domain/users"
	"clinic-api/internal/infra/cache"
	"clinic-api/internal/infra/metrics"
	stripeinfra "clinic-api/internal/infra/stripe"
	"clinic-api/internal/infra/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run schema migrations before serving")
	return cmd
}

func runServer(migrate bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		return err
	}

	ctx := context.Background()

	// Users
	var (
		repo   users.Repository
		pinger health.Pinger
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to database")
			return err
		}
		defer database.Close(db)

		if migrate {
			if err := database.Migrate(ctx, db, logger); err != nil {
				return err
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		repo, pinger = users.NewGormRepository(db), sqlDB
	} else {
		repo = users.NewMemoryRepository()
	}

	// Webhook ledger
	var ledger subscriptions.Ledger = subscriptions.NopLedger{}
	if cfg.RedisURL != "" {
		redisLedger, err := cache.Connect(ctx, cfg.RedisURL, cfg.WebhookDedupeTTL)
		if err != nil {
			// duplicates are still applied idempotently without it
			logger.Warn().Err(err).Msg("redis unavailable, webhook dedupe disabled")
		} else {
			defer redisLedger.Close()
			ledger = redisLedger
		}
	}

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	gateway := stripeinfra.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.AppEnv)
	m := metrics.New()
	synchronizer := subscriptions.NewSynchronizer(repo, gateway, logger)

	deps := routes.Dependencies{
		Users:   repo,
		Tokens:  issuer,
		Metrics: m,
		Auth:    authapi.NewHandler(repo, issuer, logger),
		Profile: usersapi.NewHandler(repo),
		Admin:   adminapi.NewHandler(repo, logger),
		Billing: billing.NewHandler(repo, gateway, cfg.StripePriceID, logger),
		Webhook: stripewebhooks.NewHandler(gateway, synchronizer, ledger, m, logger),
		Health:  health.NewHandler(cfg.AppEnv, pinger, gateway.Enabled()),
	}
	if cfg.GoogleEnabled() {
		deps.Google = authapi.NewGoogleHandler(authapi.GoogleConfig{
			ClientID:         cfg.GoogleClientID,
			ClientSecret:     cfg.GoogleClientSecret,
			RedirectURL:      cfg.GoogleRedirectURL,
			FrontendRedirect: cfg.GoogleFrontendRedirect,
			SecureCookie:     cfg.IsProduction(),
		}, repo, issuer, logger)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	response.ExposeCauses(cfg.IsDevelopment())

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.Instrument(m),
		cors.New(cors.Config{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)
	routes.RegisterRoutes(r, deps)

	return serve(r, cfg, logger)
}

func serve(handler http.Handler, cfg *config.Config, logger zerolog.Logger) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
