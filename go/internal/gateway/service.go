package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/luckypool/go/internal/countdown"
	"github.com/rs/zerolog/log"
)

// Service is the pool gateway: REST state, live countdown websockets and
// optional event ingest
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	feed              *CountdownFeed
	eventHandler      *PoolEventHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the pool gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	IngestConfig     IngestConfig
}

// DefaultConfig returns default configuration for the pool gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		IngestConfig:     DefaultIngestConfig(),
	}
}

// NewService creates a new pool gateway service. Countdowns stop when ctx is done.
func NewService(ctx context.Context, config Config, app PoolApp, clock countdown.Clock) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	feed := NewCountdownFeed(ctx, app, countdown.NewRegistry(clock), connectionManager)
	eventHandler := NewPoolEventHandler(app, feed)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, app),
		stateHandler:      NewStateHandler(app),
		feed:              feed,
		eventHandler:      eventHandler,
	}

	if config.IngestConfig.Enabled() {
		eventConsumer, err := NewEventConsumer(ctx, eventHandler, config.IngestConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = eventConsumer
	} else {
		log.Info().Msg("NATS URL not set, pool event ingest disabled")
	}

	return s, nil
}

// Start runs the gateway until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting pool gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("pool gateway service shutting down")
	return s.Stop()
}

// Stop cancels every countdown and closes the event consumer
func (s *Service) Stop() error {
	s.feed.Stop()

	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}

	log.Info().Msg("pool gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	log.Info().Msg("pool gateway routes registered")
}

// EventHandler exposes the handler that applies pool events
func (s *Service) EventHandler() *PoolEventHandler {
	return s.eventHandler
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
