package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbernstein/waterlab/backend-go/internal/api"
	"github.com/bbernstein/waterlab/backend-go/internal/app"
	"github.com/bbernstein/waterlab/backend-go/internal/config"
	"github.com/bbernstein/waterlab/backend-go/internal/metrics"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadFromEnv()
	cfg.InitializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, config.GetCacheConfig(), app.Dependencies{
		Metrics:      metrics.NewMetrics(),
		ServeMetrics: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize service")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	srv := api.NewServer(":"+cfg.Port, a.Router)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).Msg("WaterLab API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
