package pool

import (
	"fmt"
	"time"

	"github.com/mcdev12/luckypool/go/internal/models"
)

// ProgressPercentage returns sold/max*100. A zero-capacity pool is a
// precondition violation and yields ErrZeroCapacity.
func ProgressPercentage(p models.LotteryPool) (float64, error) {
	if p.MaxTickets == 0 {
		return 0, fmt.Errorf("progress of pool %q: %w", p.ID, ErrZeroCapacity)
	}
	return float64(p.SoldTickets) / float64(p.MaxTickets) * 100, nil
}

// RemainingTickets returns the unsold capacity.
func RemainingTickets(p models.LotteryPool) int {
	return p.MaxTickets - p.SoldTickets
}

// IsPurchasable reports whether tickets can be bought. EndTime is not
// consulted; expiry is folded into IsActive by Reconcile when the app runs
// with ExpiryDerived.
func IsPurchasable(p models.LotteryPool) bool {
	return p.IsActive && p.SoldTickets < p.MaxTickets
}

// Reconcile returns p with IsActive cleared once now has reached EndTime.
func Reconcile(p models.LotteryPool, now time.Time) models.LotteryPool {
	if p.IsActive && !now.Before(p.EndTime) {
		p.IsActive = false
	}
	return p
}

// Validate checks the record preconditions. It never repairs a record.
func Validate(p models.LotteryPool) error {
	var err error
	switch {
	case p.ID == "":
		err = ErrMissingID
	case p.MaxTickets <= 0:
		err = ErrZeroCapacity
	case p.TicketPrice <= 0:
		err = ErrNegativePrice
	case p.PrizePool < 0:
		err = ErrNegativePrize
	case p.SoldTickets < 0:
		err = ErrNegativeSold
	case p.SoldTickets > p.MaxTickets:
		err = ErrOversold
	case p.HasWinner() && IsPurchasable(p):
		err = ErrWinnerWhileOpen
	}
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidPool, p.ID, err)
	}
	return nil
}
