package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nordveil/site-api/internal/app"
	"github.com/nordveil/site-api/internal/config"
	"github.com/nordveil/site-api/internal/logger"
)

// @title Nordveil Site API
// @version 1.0
// @description Contact, newsletter and CRM endpoints behind the marketing site.
// @host localhost:8080
// @BasePath /api/
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded:", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogsPath, "site-api")
	if err != nil {
		log.Panicf("failed to create logger: %v", err)
	}
	defer func() {
		if err := zl.Sync(); err != nil {
			log.Println("failed to sync logger:", err)
		}
	}()

	application := app.New(*cfg, zl)
	container := application.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx, container); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}
