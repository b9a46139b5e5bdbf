package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/luckypool/go/internal/events"
	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/mcdev12/luckypool/go/internal/pool"
	"github.com/rs/zerolog/log"
)

// ErrMalformedEvent is returned for envelopes that can never be applied
var ErrMalformedEvent = errors.New("malformed event")

// PoolEventHandler applies pool mutation events to the pool app and
// notifies watchers of the result.
type PoolEventHandler struct {
	app  PoolApp
	feed *CountdownFeed
}

// NewPoolEventHandler creates a new event handler
func NewPoolEventHandler(app PoolApp, feed *CountdownFeed) *PoolEventHandler {
	return &PoolEventHandler{
		app:  app,
		feed: feed,
	}
}

// Handle decodes one envelope and applies it
func (h *PoolEventHandler) Handle(ctx context.Context, data []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%w: unmarshal envelope: %v", ErrMalformedEvent, err)
	}
	if envelope.PoolID == "" {
		return fmt.Errorf("%w: missing pool id", ErrMalformedEvent)
	}

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("event_type", envelope.EventType).
		Str("pool_id", envelope.PoolID).
		Msg("applying pool event")

	updated, err := h.apply(ctx, envelope)
	if err != nil {
		return fmt.Errorf("apply %s to pool %q: %w", envelope.EventType, envelope.PoolID, err)
	}

	if h.feed != nil {
		h.feed.PoolChanged(*updated, envelope.EventType)
	}
	return nil
}

// IsPermanent reports whether redelivering the event cannot succeed
func IsPermanent(err error) bool {
	return errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, pool.ErrInvalidPool) ||
		errors.Is(err, pool.ErrNotPurchasable) ||
		errors.Is(err, pool.ErrNotFound)
}

func (h *PoolEventHandler) apply(ctx context.Context, envelope events.Envelope) (*models.LotteryPool, error) {
	switch envelope.EventType {
	case events.TypePoolUpserted:
		var payload events.PoolUpsertedPayload
		if err := decode(envelope, &payload); err != nil {
			return nil, err
		}
		if payload.Pool.ID != envelope.PoolID {
			return nil, fmt.Errorf("%w: payload pool %q does not match envelope", ErrMalformedEvent, payload.Pool.ID)
		}
		return h.app.UpsertPool(ctx, payload.Pool)

	case events.TypeTicketsPurchased:
		var payload events.TicketsPurchasedPayload
		if err := decode(envelope, &payload); err != nil {
			return nil, err
		}
		return h.app.RecordPurchase(ctx, envelope.PoolID, payload.Count)

	case events.TypePoolPaused:
		var payload events.PoolPausedPayload
		if err := decode(envelope, &payload); err != nil {
			return nil, err
		}
		log.Info().Str("pool_id", envelope.PoolID).Str("reason", payload.Reason).Msg("pool paused upstream")
		return h.app.SetActive(ctx, envelope.PoolID, false)

	case events.TypePoolResumed:
		var payload events.PoolResumedPayload
		if err := decode(envelope, &payload); err != nil {
			return nil, err
		}
		return h.app.SetActive(ctx, envelope.PoolID, true)

	case events.TypeWinnerDrawn:
		var payload events.WinnerDrawnPayload
		if err := decode(envelope, &payload); err != nil {
			return nil, err
		}
		return h.app.SetWinner(ctx, envelope.PoolID, payload.Winner)

	default:
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, envelope.EventType)
	}
}

func decode(envelope events.Envelope, v interface{}) error {
	if len(envelope.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Payload, v); err != nil {
		return fmt.Errorf("%w: unmarshal %s payload: %v", ErrMalformedEvent, envelope.EventType, err)
	}
	return nil
}
