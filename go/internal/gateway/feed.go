package gateway

import (
	"context"

	"github.com/mcdev12/luckypool/go/internal/countdown"
	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/rs/zerolog/log"
)

// CountdownFeed runs one countdown per watched pool and pushes its ticks to
// the pool's websocket watchers.
type CountdownFeed struct {
	app      PoolApp
	registry *countdown.Registry
	cm       *ConnectionManager
	ctx      context.Context
}

// NewCountdownFeed creates a feed and hooks it into the connection manager
func NewCountdownFeed(ctx context.Context, app PoolApp, registry *countdown.Registry, cm *ConnectionManager) *CountdownFeed {
	f := &CountdownFeed{
		app:      app,
		registry: registry,
		cm:       cm,
		ctx:      ctx,
	}
	cm.SetWatchHooks(f.Watch, f.Unwatch)
	return f
}

// Watch starts the countdown for poolID
func (f *CountdownFeed) Watch(poolID string) {
	p, err := f.app.GetPool(f.ctx, poolID)
	if err != nil {
		log.Error().Err(err).Str("pool_id", poolID).Msg("failed to load pool for countdown")
		return
	}
	f.start(*p)
}

// Unwatch stops the countdown for poolID
func (f *CountdownFeed) Unwatch(poolID string) {
	f.registry.Cancel(poolID)
}

// PoolChanged pushes the new record to watchers and restarts the countdown
// when the deadline moved.
func (f *CountdownFeed) PoolChanged(p models.LotteryPool, source string) {
	event, err := NewPoolEvent(p.ID, EventTypePoolUpdated, f.app.Now(), PoolUpdatedPayload{
		Pool:   p,
		Source: source,
	})
	if err != nil {
		log.Error().Err(err).Str("pool_id", p.ID).Msg("failed to build pool update event")
		return
	}
	f.cm.BroadcastToPool(p.ID, event)

	f.cm.IfWatched(p.ID, func() {
		end, running := f.registry.EndTime(p.ID)
		if running && end.Equal(p.EndTime) {
			return
		}
		log.Info().
			Str("pool_id", p.ID).
			Time("old_end_time", end).
			Time("new_end_time", p.EndTime).
			Msg("deadline moved, restarting countdown")
		f.start(p)
	})
}

// Stop cancels every running countdown
func (f *CountdownFeed) Stop() {
	f.registry.CancelAll()
}

func (f *CountdownFeed) start(p models.LotteryPool) {
	first := true
	f.registry.Watch(f.ctx, p.ID, p.EndTime, func(tick countdown.Tick) {
		// Unchanged ticks (after expiry) carry nothing new for the display.
		if !first && !tick.Changed.Any() {
			return
		}
		first = false
		f.broadcastTick(p.ID, tick)
	})
}

func (f *CountdownFeed) broadcastTick(poolID string, tick countdown.Tick) {
	event, err := NewPoolEvent(poolID, EventTypeCountdownTick, tick.At, CountdownTickPayload{
		State:    tick.State,
		Changed:  tick.Changed,
		TickedAt: tick.At,
	})
	if err != nil {
		log.Error().Err(err).Str("pool_id", poolID).Msg("failed to build countdown tick event")
		return
	}
	f.cm.BroadcastToPool(poolID, event)
}
