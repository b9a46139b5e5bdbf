package models

import "time"

// PoolCategory names the display section a pool renders in.
type PoolCategory string

const (
	PoolCategoryFeatured   PoolCategory = "FEATURED"
	PoolCategoryQuickDraw  PoolCategory = "QUICK_DRAW"
	PoolCategoryHighStakes PoolCategory = "HIGH_STAKES"
	PoolCategoryEnded      PoolCategory = "ENDED"
)

// LotteryPool is a single lottery round. Values are snapshots; mutation goes
// through the pool app, never through a shared pointer.
type LotteryPool struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	TicketPrice float64   `json:"ticket_price" yaml:"ticket_price"`
	MaxTickets  int       `json:"max_tickets" yaml:"max_tickets"`
	SoldTickets int       `json:"sold_tickets" yaml:"sold_tickets"`
	EndTime     time.Time `json:"end_time" yaml:"end_time"`
	IsActive    bool      `json:"is_active" yaml:"is_active"`
	Winner      *string   `json:"winner,omitempty" yaml:"winner,omitempty"`
	PrizePool   float64   `json:"prize_pool" yaml:"prize_pool"`
}

// HasWinner reports whether a winner has been recorded.
func (p LotteryPool) HasWinner() bool {
	return p.Winner != nil && *p.Winner != ""
}

// Clone returns a copy that shares no pointers with p.
func (p LotteryPool) Clone() LotteryPool {
	if p.Winner != nil {
		w := *p.Winner
		p.Winner = &w
	}
	return p
}
