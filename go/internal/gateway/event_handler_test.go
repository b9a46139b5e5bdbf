package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/luckypool/go/internal/events"
	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/mcdev12/luckypool/go/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, eventType, poolID string, payload interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(events.Envelope{
		EventID:   "evt-1",
		EventType: eventType,
		PoolID:    poolID,
		Timestamp: epoch,
		Payload:   raw,
	})
	require.NoError(t, err)
	return data
}

func TestPoolEventHandler_TicketsPurchased(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx)
	h := NewPoolEventHandler(f.app, f.feed)

	err := h.Handle(ctx, envelope(t, events.TypeTicketsPurchased, "daily", events.TicketsPurchasedPayload{Count: 3}))
	require.NoError(t, err)

	p, err := f.app.GetPool(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, 70, p.SoldTickets)
}

func TestPoolEventHandler_PauseResumeAndWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx)
	h := NewPoolEventHandler(f.app, nil)

	require.NoError(t, h.Handle(ctx, envelope(t, events.TypePoolPaused, "whale", events.PoolPausedPayload{Reason: "maintenance"})))
	p, err := f.app.GetPool(ctx, "whale")
	require.NoError(t, err)
	assert.False(t, p.IsActive)

	require.NoError(t, h.Handle(ctx, envelope(t, events.TypePoolResumed, "whale", events.PoolResumedPayload{ResumedAt: epoch})))
	p, err = f.app.GetPool(ctx, "whale")
	require.NoError(t, err)
	assert.True(t, p.IsActive)

	require.NoError(t, h.Handle(ctx, envelope(t, events.TypeWinnerDrawn, "weekly", events.WinnerDrawnPayload{Winner: "0xabc"})))
	p, err = f.app.GetPool(ctx, "weekly")
	require.NoError(t, err)
	require.NotNil(t, p.Winner)
	assert.Equal(t, "0xabc", *p.Winner)
}

func TestPoolEventHandler_PermanentFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx)
	h := NewPoolEventHandler(f.app, nil)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not json", []byte("{"), ErrMalformedEvent},
		{"missing pool id", envelope(t, events.TypePoolPaused, "", nil), ErrMalformedEvent},
		{"unknown type", envelope(t, "PoolExploded", "daily", nil), ErrMalformedEvent},
		{"unknown pool", envelope(t, events.TypePoolPaused, "nope", nil), pool.ErrNotFound},
		{"sold out", envelope(t, events.TypeTicketsPurchased, "weekly", events.TicketsPurchasedPayload{Count: 1}), pool.ErrNotPurchasable},
		{"winner while open", envelope(t, events.TypeWinnerDrawn, "daily", events.WinnerDrawnPayload{Winner: "0xabc"}), pool.ErrWinnerWhileOpen},
		{"invalid upsert", envelope(t, events.TypePoolUpserted, "bad", events.PoolUpsertedPayload{Pool: models.LotteryPool{ID: "bad"}}), pool.ErrInvalidPool},
		{"mismatched upsert", envelope(t, events.TypePoolUpserted, "daily", events.PoolUpsertedPayload{Pool: models.LotteryPool{ID: "other"}}), ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Handle(ctx, tt.data)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsPermanent(err))
		})
	}

	assert.False(t, IsPermanent(context.DeadlineExceeded))
}

func TestPoolEventHandler_MovedDeadlineRestartsCountdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(ctx)
	defer f.feed.Stop()
	h := NewPoolEventHandler(f.app, f.feed)

	f.watch("daily")
	end, running := f.feed.registry.EndTime("daily")
	require.True(t, running)
	assert.Equal(t, epoch.Add(time.Hour), end)

	updated := seedPools()[1]
	updated.EndTime = epoch.Add(2 * time.Hour)
	require.NoError(t, h.Handle(ctx, envelope(t, events.TypePoolUpserted, "daily", events.PoolUpsertedPayload{Pool: updated})))

	end, running = f.feed.registry.EndTime("daily")
	require.True(t, running)
	assert.Equal(t, epoch.Add(2*time.Hour), end)

	current, ok := f.feed.registry.Current("daily")
	require.True(t, ok)
	assert.Equal(t, 2, current.State.Hours)
}

func TestPoolEventHandler_UnwatchedPoolHasNoCountdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(ctx)
	h := NewPoolEventHandler(f.app, f.feed)

	updated := seedPools()[2]
	updated.EndTime = epoch.Add(5 * time.Hour)
	require.NoError(t, h.Handle(ctx, envelope(t, events.TypePoolUpserted, "whale", events.PoolUpsertedPayload{Pool: updated})))

	assert.Equal(t, 0, f.feed.registry.Active())
}
