package gateway

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckypool/go/internal/countdown"
	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/mcdev12/luckypool/go/internal/pool"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedPools() []models.LotteryPool {
	return []models.LotteryPool{
		{ID: "mega", Name: "Mega Jackpot", TicketPrice: 25, MaxTickets: 1000, SoldTickets: 670, EndTime: epoch.Add(90_061 * time.Second), IsActive: true, PrizePool: 15000},
		{ID: "daily", Name: "Daily Draw", TicketPrice: 5, MaxTickets: 100, SoldTickets: 67, EndTime: epoch.Add(time.Hour), IsActive: true, PrizePool: 450},
		{ID: "whale", Name: "Whale Pool", TicketPrice: 100, MaxTickets: 50, SoldTickets: 10, EndTime: epoch.Add(72 * time.Hour), IsActive: true, PrizePool: 4500},
		{ID: "weekly", Name: "Weekly Classic", TicketPrice: 10, MaxTickets: 500, SoldTickets: 500, EndTime: epoch.Add(-time.Hour), IsActive: false, PrizePool: 4800},
	}
}

type fixture struct {
	clock *clockwork.FakeClock
	app   *pool.App
	cm    *ConnectionManager
	feed  *CountdownFeed
}

func newFixture(ctx context.Context) *fixture {
	clock := clockwork.NewFakeClockAt(epoch)
	app := pool.NewApp(pool.NewMemoryRepository(seedPools()...), pool.Options{Clock: clock})
	cm := NewConnectionManager(DefaultConnectionConfig())
	feed := NewCountdownFeed(ctx, app, countdown.NewRegistry(clock), cm)
	return &fixture{clock: clock, app: app, cm: cm, feed: feed}
}

// watch registers a bare connection so the feed starts a countdown for poolID.
func (f *fixture) watch(poolID string) *Connection {
	conn := &Connection{
		ID:      "test-" + poolID,
		PoolID:  poolID,
		Send:    make(chan []byte, 256),
		Manager: f.cm,
		closed:  make(chan struct{}),
	}
	f.cm.registerConnection(conn)
	return conn
}
