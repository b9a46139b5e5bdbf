package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// IngestConfig points the gateway at the stream where the settlement side
// publishes pool mutations. An empty URL disables ingest.
type IngestConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	// MaxDeliver bounds redelivery of events that keep failing transiently.
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultIngestConfig returns ingest settings with no URL
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		StreamName:    "LOTTERY_POOLS",
		ConsumerName:  "pool-gateway",
		SubjectFilter: "lottery.pools.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Enabled reports whether pool events should be consumed at all
func (c IngestConfig) Enabled() bool {
	return c.URL != ""
}

// connectOptions keeps the connection retrying forever by default; pool
// events queue up in the stream while the gateway is cut off.
func (c IngestConfig) connectOptions() []nats.Option {
	return []nats.Option{
		nats.Name(c.ConsumerName),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(c.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Str("stream", c.StreamName).Msg("pool event stream disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Str("stream", c.StreamName).Msg("pool event stream reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Str("stream", c.StreamName).Msg("pool event stream error")
		}),
	}
}

func (c IngestConfig) consumerConfig() jetstream.ConsumerConfig {
	return jetstream.ConsumerConfig{
		Durable:       c.ConsumerName,
		Description:   "applies lottery pool mutations to the pool gateway",
		FilterSubject: c.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.MaxDeliver,
		AckWait:       c.AckWait,
		MaxAckPending: c.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}
}

// EventConsumer feeds pool mutation events from JetStream to the handler
type EventConsumer struct {
	handler  *PoolEventHandler
	nc       *nats.Conn
	consumer jetstream.Consumer
	config   IngestConfig
}

// NewEventConsumer connects and binds the durable pool event consumer
func NewEventConsumer(ctx context.Context, handler *PoolEventHandler, config IngestConfig) (*EventConsumer, error) {
	nc, err := nats.Connect(config.URL, config.connectOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect to pool event stream: %w", err)
	}

	consumer, err := bindConsumer(ctx, nc, config)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &EventConsumer{
		handler:  handler,
		nc:       nc,
		consumer: consumer,
		config:   config,
	}, nil
}

// bindConsumer creates the durable consumer on the pool stream, or updates it
// when the filter or delivery limits changed since the last deploy.
func bindConsumer(ctx context.Context, nc *nats.Conn, config IngestConfig) (jetstream.Consumer, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	stream, err := js.Stream(ctx, config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("pool stream %q: %w", config.StreamName, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, config.consumerConfig())
	if err != nil {
		return nil, fmt.Errorf("bind pool consumer %q: %w", config.ConsumerName, err)
	}

	log.Info().
		Str("stream", config.StreamName).
		Str("consumer", config.ConsumerName).
		Str("subjects", config.SubjectFilter).
		Msg("pool event consumer bound")
	return consumer, nil
}

// Start consumes until ctx is done
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("consuming pool events")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume pool events: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("pool event consumer shutting down")
			return nil
		case msg := <-messageCh:
			ec.processMessage(ctx, msg)
		}
	}
}

func (ec *EventConsumer) processMessage(ctx context.Context, msg jetstream.Msg) {
	err := ec.handler.Handle(ctx, msg.Data())
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case IsPermanent(err):
		log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping event that cannot be applied")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process message")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
