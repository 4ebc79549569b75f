package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/stepline/dance_catalog/internal/config"
	"github.com/stepline/dance_catalog/internal/db"
	"github.com/stepline/dance_catalog/internal/es"
	"github.com/stepline/dance_catalog/internal/events"
	authhdl "github.com/stepline/dance_catalog/internal/handlers/auth"
	"github.com/stepline/dance_catalog/internal/handlers/favorites"
	"github.com/stepline/dance_catalog/internal/handlers/lists"
	"github.com/stepline/dance_catalog/internal/handlers/moves"
	"github.com/stepline/dance_catalog/internal/handlers/searchhdl"
	"github.com/stepline/dance_catalog/internal/logging"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	httpserver "github.com/stepline/dance_catalog/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.RefreshSecret, "REFRESH_SECRET")

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("database migration error: %v", err)
	}

	producer := events.NewProducer(cfg.KafkaBrokers)

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		esClient, err = es.NewClient(cfg)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		}
	}

	authMW := &mwauth.Middleware{DB: database, JWTSecret: cfg.JWTSecret}

	deps := httpserver.Deps{
		Auth: authMW,
		AuthHdl: &authhdl.Handler{
			DB:            database,
			JWTSecret:     cfg.JWTSecret,
			RefreshSecret: cfg.RefreshSecret,
			Producer:      producer,
			SecureCookies: !cfg.DevMode(),
		},
		Lists:      &lists.Handler{DB: database, Producer: producer},
		Favorites:  &favorites.Handler{DB: database},
		Moves:      &moves.Handler{DB: database, ES: esClient},
		Search:     &searchhdl.Handler{ES: esClient, Index: es.MovesIndex},
		Logger:     logger,
		CORSOrigin: cfg.CORSOrigin,
		DevMode:    cfg.DevMode(),
	}

	e := echo.New()
	e.HideBanner = true
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
