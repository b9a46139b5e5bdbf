package gateway

import (
	"context"
	"time"

	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/mcdev12/luckypool/go/internal/pool"
)

// PoolApp defines what the gateway needs from the pool app
type PoolApp interface {
	ListPools(ctx context.Context) ([]models.LotteryPool, error)
	GetPool(ctx context.Context, id string) (*models.LotteryPool, error)
	Categories(ctx context.Context) (pool.Categories, error)
	Summary(ctx context.Context) (pool.Summary, error)
	Rules() pool.Rules
	Now() time.Time

	UpsertPool(ctx context.Context, p models.LotteryPool) (*models.LotteryPool, error)
	RecordPurchase(ctx context.Context, id string, count int) (*models.LotteryPool, error)
	SetActive(ctx context.Context, id string, active bool) (*models.LotteryPool, error)
	SetWinner(ctx context.Context, id, winner string) (*models.LotteryPool, error)
}

var _ PoolApp = (*pool.App)(nil)
