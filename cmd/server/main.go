package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/motorhub/backend/internal/router"
	"github.com/anonto42/motorhub/backend/pkg/config"
	"github.com/anonto42/motorhub/backend/pkg/firebase"
	"github.com/anonto42/motorhub/backend/pkg/logger"
	"github.com/anonto42/motorhub/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Env: cfg.Env})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize databases")
	}
	defer db.CloseDB()

	// Firebase is optional unless it backs the document store
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID,
			cfg.DocstoreDriver == config.DriverFirestore, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Firebase")
		}
		defer firebaseApp.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()

	config.SetupMiddleware(e, log)

	board, err := router.SetupRoutes(e, router.Dependencies{
		Config:   cfg,
		Postgres: db.Postgres,
		Mongo:    db.Mongo,
		Firebase: firebaseApp,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up routes")
	}
	board.Start(ctx)
	defer board.Close()

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting HTTP server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
