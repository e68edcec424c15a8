package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peerlink/backend/internal/api"
	"github.com/peerlink/backend/internal/auth"
	"github.com/peerlink/backend/internal/config"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/fbapp"
	"github.com/peerlink/backend/internal/middleware"
	"github.com/peerlink/backend/internal/repository"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting PeerLink API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("auth", cfg.Auth.Mode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var app *fbapp.App
	if cfg.NeedsFirebase() {
		app, err = fbapp.New(ctx, logger, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase", zap.Error(err))
		}
		logger.Info("Firebase app initialized")
	}

	backend, err := repository.Open(ctx, cfg, app, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer backend.Close()

	verifier, err := initVerifier(ctx, cfg, app)
	if err != nil {
		logger.Fatal("Failed to initialize token verifier", zap.Error(err))
	}

	checks := map[string]api.ReadinessCheck{"store": backend.Ping}

	var limiter middleware.Limiter
	if cfg.Redis.URL != "" {
		redisClient, err := middleware.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("Redis unavailable - connection request rate limiting disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			limiter = middleware.NewRedisLimiter(redisClient, "ratelimit:connreq", cfg.RateLimit.Requests, cfg.RateLimit.Window)
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
			logger.Info("Connection request rate limiting enabled",
				zap.Int("requests", cfg.RateLimit.Requests),
				zap.Duration("window", cfg.RateLimit.Window),
			)
		}
	} else {
		logger.Warn("REDIS_URL not set - connection request rate limiting disabled")
	}

	// Initialize services
	store := backend.Store
	profileService := domain.NewProfileService(store)
	matchService := domain.NewMatchService(store, logger)
	chatService := domain.NewChatService(store, logger)
	connectionService := domain.NewConnectionService(store, chatService, logger)

	wsManager := api.NewWebSocketManager(cfg.CORS.AllowedOrigins, logger)
	go wsManager.Run(ctx)

	router := api.NewRouter(api.RouterDeps{
		ProfileHandler:    api.NewProfileHandler(profileService, logger),
		MatchHandler:      api.NewMatchHandler(matchService, profileService, logger),
		ConnectionHandler: api.NewConnectionHandler(connectionService, profileService, wsManager, logger),
		ChatHandler:       api.NewChatHandler(chatService, connectionService, profileService, wsManager, logger),
		HealthHandler:     api.NewHealthHandler(checks),
		Verifier:          verifier,
		RequestLimiter:    limiter,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		Logger:            logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func initVerifier(ctx context.Context, cfg *config.Config, app *fbapp.App) (auth.Verifier, error) {
	if cfg.Auth.Mode == "firebase" {
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(client), nil
	}
	return auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiry), nil
}
