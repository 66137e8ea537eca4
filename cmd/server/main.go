package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tienda/internal/config"
	"tienda/internal/infra"
	"tienda/internal/middleware"
	"tienda/internal/router"
	"tienda/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	distanciaCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	app := router.New(cfg, db, rdb, distanciaCB)

	// Background loops: job queues (order confirmation PDF + email),
	// the inactivity reaper and the rate limiter purge.
	app.Dispatcher.StartWorkerPool(ctx, worker.PoolConfig{
		Workers:     cfg.WorkerPoolSize,
		MaxAttempts: cfg.MaxJobAttempts,
		Processors:  app.Processors,
	})
	cronDone := worker.StartInactividadCron(ctx, app.Inactividad, cfg.InactividadCheckInterval)
	middleware.StartPurge(ctx, app.Limiters...)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      app.Engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("%s backend listening on :%d", cfg.NombreTienda, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// no request is in flight anymore: stop the loops, then persist the
	// bound carts still waiting on their debounce
	cancel()
	<-cronDone
	if err := app.Carrito.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("pending cart saves lost")
	}
	log.Info().Msg("server exited")
}
