package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/mentor-match/docs" // swagger docs
	"github.com/mentor-match/internal/api"
	"github.com/mentor-match/internal/auth"
	"github.com/mentor-match/internal/config"
	"github.com/mentor-match/internal/logger"
	"github.com/mentor-match/internal/middleware"
	"github.com/mentor-match/internal/scheduler"
	"github.com/mentor-match/internal/service"
	"github.com/mentor-match/internal/storage"
	"github.com/mentor-match/internal/validation"
)

// @title Mentor Match API
// @version 1.0
// @description Mentor and mentee matching: accounts, profiles, a mentor directory and match requests.

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your JWT token with the Bearer prefix, e.g. "Bearer eyJhbGci..."

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*cfg)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		log.Warn().Msg("JWT_SECRET is the built-in default; set it before exposing the server")
	}

	// Connect to database
	log.Info().Str("driver", cfg.Database.Driver).Msg("Connecting to database...")
	db, err := storage.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run migrations
	log.Info().Msg("Running migrations...")
	if err := db.RunMigrations(ctx, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories
	userRepo := storage.NewUserRepository(db)
	profileRepo := storage.NewProfileRepository(db)
	mentorRepo := storage.NewMentorRepository(db)
	matchRepo := storage.NewMatchRepository(db)

	// Credentials
	hasher, err := auth.NewPasswordHasher(cfg.Security.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return err
	}

	// Services
	authSvc := service.NewAuthService(userRepo, profileRepo, hasher, tokens, service.WithLogger(log))
	profileSvc := service.NewProfileService(userRepo, profileRepo, cfg.Upload, service.WithLogger(log))
	mentorSvc := service.NewMentorService(mentorRepo)
	matchSvc := service.NewMatchService(matchRepo, userRepo, service.WithLogger(log))

	// Maintenance scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(cfg.Scheduler.MaintenanceSpec, db, matchRepo, log)
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// HTTP
	responder := api.NewResponder(cfg.IsDevelopment(), log)
	authMiddleware := middleware.NewAuthMiddleware(authSvc, responder.Error, log)
	// base64 inflates uploads by a third; leave room for the other fields
	maxBody := cfg.Upload.MaxImageSize*2 + 64<<10
	handler := api.NewHandler(authSvc, profileSvc, mentorSvc, matchSvc, db, validation.New(), responder, maxBody)

	router := api.NewRouter(handler, authMiddleware, api.RouterConfig{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		AuthMaxConcurrent: cfg.Security.AuthMaxConcurrent,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.App.Env).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
	return nil
}
