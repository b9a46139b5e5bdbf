package pool

import "github.com/mcdev12/luckypool/go/internal/models"

const (
	// DefaultFeaturedPrizeThreshold is the minimum prize pool of the featured pool
	DefaultFeaturedPrizeThreshold = 1200.0
	// DefaultQuickDrawMaxPrice is the highest ticket price still shown as quick draw
	DefaultQuickDrawMaxPrice = 10.0
)

// Rules holds the thresholds used to bucket active pools.
type Rules struct {
	FeaturedPrizeThreshold float64 `yaml:"featured_prize_threshold" json:"featured_prize_threshold"`
	QuickDrawMaxPrice      float64 `yaml:"quick_draw_max_price" json:"quick_draw_max_price"`
}

// DefaultRules returns the stock thresholds.
func DefaultRules() Rules {
	return Rules{
		FeaturedPrizeThreshold: DefaultFeaturedPrizeThreshold,
		QuickDrawMaxPrice:      DefaultQuickDrawMaxPrice,
	}
}

// Categories is a total partition of a pool list into display buckets.
type Categories struct {
	Featured   *models.LotteryPool  `json:"featured,omitempty"`
	QuickDraw  []models.LotteryPool `json:"quick_draw"`
	HighStakes []models.LotteryPool `json:"high_stakes"`
	Ended      []models.LotteryPool `json:"ended"`
}

// Categorize buckets pools with DefaultRules.
func Categorize(pools []models.LotteryPool) Categories {
	return CategorizeWith(pools, DefaultRules())
}

// CategorizeWith buckets pools: inactive pools end up in Ended, the first
// active pool reaching the prize threshold becomes Featured, and the rest of
// the active pools split on ticket price. Input order is kept in every bucket.
func CategorizeWith(pools []models.LotteryPool, rules Rules) Categories {
	c := Categories{
		QuickDraw:  []models.LotteryPool{},
		HighStakes: []models.LotteryPool{},
		Ended:      []models.LotteryPool{},
	}

	for _, p := range pools {
		switch {
		case !p.IsActive:
			c.Ended = append(c.Ended, p)
		case c.Featured == nil && p.PrizePool >= rules.FeaturedPrizeThreshold:
			featured := p
			c.Featured = &featured
		case p.TicketPrice <= rules.QuickDrawMaxPrice:
			c.QuickDraw = append(c.QuickDraw, p)
		default:
			c.HighStakes = append(c.HighStakes, p)
		}
	}

	return c
}

// CategoryOf returns the bucket a single pool lands in within pools.
func CategoryOf(pools []models.LotteryPool, id string, rules Rules) (models.PoolCategory, bool) {
	c := CategorizeWith(pools, rules)
	if c.Featured != nil && c.Featured.ID == id {
		return models.PoolCategoryFeatured, true
	}
	buckets := []struct {
		category models.PoolCategory
		pools    []models.LotteryPool
	}{
		{models.PoolCategoryQuickDraw, c.QuickDraw},
		{models.PoolCategoryHighStakes, c.HighStakes},
		{models.PoolCategoryEnded, c.Ended},
	}
	for _, b := range buckets {
		for _, p := range b.pools {
			if p.ID == id {
				return b.category, true
			}
		}
	}
	return "", false
}
