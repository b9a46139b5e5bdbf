package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckypool/go/internal/gateway"
	"github.com/mcdev12/luckypool/go/internal/pool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	if !getEnvAsBool("LOG_JSON", false) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	port := getEnvAsInt("PORT", 8080)
	natsURL := getEnv("NATS_URL", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	poolApp := pool.NewApp(pool.NewMemoryRepository(), pool.Options{
		Rules:  config.Pools.Rules,
		Expiry: config.Pools.Expiry,
		Clock:  clock,
	})

	for _, p := range config.seedRecords(clock.Now()) {
		if _, err := poolApp.UpsertPool(ctx, p); err != nil {
			log.Fatal().Err(err).Str("pool_id", p.ID).Msg("invalid seed pool")
		}
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.IngestConfig.URL = natsURL
	gatewayConfig.IngestConfig.StreamName = config.Events.StreamName
	gatewayConfig.IngestConfig.ConsumerName = config.Events.ConsumerName
	gatewayConfig.IngestConfig.SubjectFilter = config.Events.SubjectFilter

	gatewayService, err := gateway.NewService(ctx, gatewayConfig, poolApp, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	log.Info().
		Int("port", port).
		Int("seed_pools", len(config.Pools.Seed)).
		Str("expiry", string(config.Pools.Expiry)).
		Str("nats_url", natsURL).
		Msg("starting luckypool")

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	server := setupServer(port, gatewayService)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()

	select {
	case <-serviceDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("gateway service did not stop in time")
	}

	log.Info().Msg("luckypool shutdown complete")
}
