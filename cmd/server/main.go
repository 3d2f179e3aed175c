// Package main initializes and starts the keybox HTTP server, setting up
// configuration, logging, database connections, repositories, services,
// the identity cache and handlers.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/akoreshkov/keybox/internal/cache"
	"github.com/akoreshkov/keybox/internal/config"
	"github.com/akoreshkov/keybox/internal/db"
	"github.com/akoreshkov/keybox/internal/logger"
	"github.com/akoreshkov/keybox/internal/middleware"
	"github.com/akoreshkov/keybox/internal/repository"
	"github.com/akoreshkov/keybox/internal/server/handler/http"
	"github.com/akoreshkov/keybox/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port
	dbName := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(dbName)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Reclaim secrets whose expiry passed long ago.
	db.StartExpiredSecretCleaner(context.Background(), postgresDB,
		time.Hour,       // interval
		30*24*time.Hour, // retention: 30 days
		zapLogger,
	)

	// Initialize repositories for users and signing secrets.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	secretRepo := repository.NewPostgresSecretRepository(postgresDB)

	// Initialize business-logic services.
	userService := service.NewUserService(userRepo, secretRepo, options.SignInTTL())
	secretService := service.NewSecretService(secretRepo, options.SignInTTL())

	// The identity cache is owned here and injected into the
	// authenticator; there is no package-level instance.
	identityCache := cache.New[middleware.Identity](options.CacheSize)
	authenticator := middleware.NewAuthenticator(userRepo, secretRepo, identityCache, options.CacheTTL())

	// Create HTTP handlers for account, secret and health endpoints.
	userHandler := &http.UserHandler{UserService: userService}
	secretHandler := &http.SecretHandler{SecretService: secretService}
	healthHandler := &http.HealthHandler{DB: postgresDB}

	// Build the router with middleware and routes.
	router := http.NewRouter(userHandler, secretHandler, healthHandler, authenticator, zapLogger)

	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
