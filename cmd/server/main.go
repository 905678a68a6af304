// Package main initializes and starts the PopCoin backend server,
// setting up configuration, logging, the database connection,
// repositories, services and handlers.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/popcoin-idle/popcoin/internal/config"
	"github.com/popcoin-idle/popcoin/internal/db"
	"github.com/popcoin-idle/popcoin/internal/identity"
	"github.com/popcoin-idle/popcoin/internal/logger"
	"github.com/popcoin-idle/popcoin/internal/repository"
	"github.com/popcoin-idle/popcoin/internal/server/handler/http"
	"github.com/popcoin-idle/popcoin/internal/service"
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
	addr := options.Addr

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
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Purge expired sessions in the background.
	db.StartSessionCleaner(context.Background(), postgresDB,
		time.Hour, // interval
		zapLogger,
	)

	// Initialize repositories for authentication and game state.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	gameRepo := repository.NewPostgresGameRepository(postgresDB)

	// Initialize business-logic services.
	verifier := identity.NewHTTPVerifier(options.IdentityAPIKey)
	authService := service.NewAuthService(authRepo, verifier)
	gameService := service.NewGameService(gameRepo)

	// Create HTTP handlers for auth and game endpoints.
	authHandler := &http.AuthHandler{AuthService: authService}
	gameHandler := &http.GameHandler{GameService: gameService}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, gameHandler, authService, zapLogger)

	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	// Serve HTTPS when a certificate pair is configured, plain HTTP
	// otherwise (e.g. behind a terminating proxy).
	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", addr))
		if err := server.ListenAndServeTLS(options.TLSCert, options.TLSKey); err != nil {
			zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
		}
		return
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
