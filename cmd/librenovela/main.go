package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/librenovela/librenovela/db"
	"github.com/librenovela/librenovela/internal/auth"
	"github.com/librenovela/librenovela/internal/config"
	"github.com/librenovela/librenovela/internal/router"
	"github.com/librenovela/librenovela/internal/storage"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil {
		logger.WithError(err).Warn("no .env file loaded")
	}

	cfg, err := config.Load()

	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	database, err := db.Connect(cfg.DatabaseDSN)

	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	if err := db.Migrate(database); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	images, err := storage.NewImageStore(cfg.ImagesDir)

	if err != nil {
		logger.WithError(err).Fatal("failed to prepare images directory")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.TokenTTL)

	r := router.New(cfg, database, logger, tokens, images)

	logger.WithField("port", cfg.Port).Info("server starting")

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
