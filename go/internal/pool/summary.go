package pool

import "github.com/mcdev12/luckypool/go/internal/models"

// Summary aggregates the admin dashboard figures.
type Summary struct {
	TotalPools     int     `json:"total_pools"`
	ActivePools    int     `json:"active_pools"`
	EndedPools     int     `json:"ended_pools"`
	TicketsSold    int     `json:"tickets_sold"`
	TicketCapacity int     `json:"ticket_capacity"`
	TotalPrizePool float64 `json:"total_prize_pool"`
	FillPercentage float64 `json:"fill_percentage"`
	PendingPayouts int     `json:"pending_payouts"`
}

// Summarize folds pools into a Summary. Ended pools without a winner count
// as pending payouts.
func Summarize(pools []models.LotteryPool) Summary {
	var s Summary
	for _, p := range pools {
		s.TotalPools++
		if p.IsActive {
			s.ActivePools++
		} else {
			s.EndedPools++
			if !p.HasWinner() {
				s.PendingPayouts++
			}
		}
		s.TicketsSold += p.SoldTickets
		s.TicketCapacity += p.MaxTickets
		s.TotalPrizePool += p.PrizePool
	}
	if s.TicketCapacity > 0 {
		s.FillPercentage = float64(s.TicketsSold) / float64(s.TicketCapacity) * 100
	}
	return s
}
