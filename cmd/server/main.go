package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/router"
	"github.com/anonto42/concordance/backend/pkg/config"
	"github.com/anonto42/concordance/backend/pkg/firebase"
	"github.com/anonto42/concordance/backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	deps := router.Deps{Config: cfg, DB: db.SQL}

	// Media store: GridFS when MongoDB is configured, local disk otherwise
	if db.Mongo != nil {
		deps.Media, err = media.NewGridFSStore(db.Mongo.Database(cfg.MongoDatabase))
	} else {
		deps.Media, err = media.NewDiskStore(cfg.MediaRoot)
	}
	if err != nil {
		logrus.Fatalf("Failed to initialize media store: %v", err)
	}

	// Event publishing
	if cfg.NatsURL != "" {
		publisher, err := events.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	// Initialize Firebase
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	switch {
	case err == nil:
		deps.Firebase = firebaseApp.AuthClient
	case errors.Is(err, firebase.ErrNotConfigured):
		logrus.Info("Firebase sign-in disabled")
	default:
		logrus.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance with middleware and routes
	e, err := router.New(deps)
	if err != nil {
		logrus.Fatalf("Failed to set up router: %v", err)
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("Server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	logrus.Info("Server stopped")
}
