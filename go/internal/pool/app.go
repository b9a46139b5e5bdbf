package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckypool/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ExpiryPolicy decides who flips a pool to inactive once its deadline passes.
type ExpiryPolicy string

const (
	// ExpiryExternal leaves IsActive entirely to external collaborators.
	ExpiryExternal ExpiryPolicy = "external"
	// ExpiryDerived treats a pool as inactive from EndTime onwards.
	ExpiryDerived ExpiryPolicy = "derived"
)

// Repository defines what the pool app needs from storage
type Repository interface {
	ListPools(ctx context.Context) ([]models.LotteryPool, error)
	GetPool(ctx context.Context, id string) (*models.LotteryPool, error)
	SavePool(ctx context.Context, p models.LotteryPool) error
	UpdatePool(ctx context.Context, id string, fn func(*models.LotteryPool) error) (*models.LotteryPool, error)
}

// Options configures the pool app
type Options struct {
	Rules  Rules
	Expiry ExpiryPolicy
	Clock  clockwork.Clock
}

// App derives presentation state from pool records and applies the mutations
// reported by external collaborators.
type App struct {
	repo   Repository
	rules  Rules
	expiry ExpiryPolicy
	clock  clockwork.Clock
}

// NewApp creates a new pool App
func NewApp(repo Repository, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Expiry == "" {
		opts.Expiry = ExpiryExternal
	}
	if opts.Rules == (Rules{}) {
		opts.Rules = DefaultRules()
	}
	return &App{
		repo:   repo,
		rules:  opts.Rules,
		expiry: opts.Expiry,
		clock:  opts.Clock,
	}
}

// Rules returns the categorization thresholds in use
func (a *App) Rules() Rules {
	return a.rules
}

// Now returns the app clock's current time
func (a *App) Now() time.Time {
	return a.clock.Now()
}

// ListPools returns every pool as seen under the expiry policy
func (a *App) ListPools(ctx context.Context) ([]models.LotteryPool, error) {
	pools, err := a.repo.ListPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	if a.expiry == ExpiryDerived {
		now := a.clock.Now()
		for i := range pools {
			pools[i] = Reconcile(pools[i], now)
		}
	}
	return pools, nil
}

// GetPool retrieves a pool by ID as seen under the expiry policy
func (a *App) GetPool(ctx context.Context, id string) (*models.LotteryPool, error) {
	p, err := a.repo.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.expiry == ExpiryDerived {
		reconciled := Reconcile(*p, a.clock.Now())
		p = &reconciled
	}
	return p, nil
}

// Categories buckets every pool for display
func (a *App) Categories(ctx context.Context) (Categories, error) {
	pools, err := a.ListPools(ctx)
	if err != nil {
		return Categories{}, err
	}
	return CategorizeWith(pools, a.rules), nil
}

// Summary aggregates every pool for the admin dashboard
func (a *App) Summary(ctx context.Context) (Summary, error) {
	pools, err := a.ListPools(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(pools), nil
}

// UpsertPool validates and stores a full pool record. Replacing an existing
// record may not take back sold tickets from an active pool or clear a
// recorded winner.
func (a *App) UpsertPool(ctx context.Context, p models.LotteryPool) (*models.LotteryPool, error) {
	now := a.clock.Now()
	if err := Validate(a.view(p, now)); err != nil {
		return nil, err
	}

	_, err := a.repo.UpdatePool(ctx, p.ID, func(existing *models.LotteryPool) error {
		if err := checkReplacement(a.view(*existing, now), p); err != nil {
			return err
		}
		*existing = p.Clone()
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		err = a.repo.SavePool(ctx, p)
	}
	if err != nil {
		if errors.Is(err, ErrInvalidPool) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save pool: %w", err)
	}

	log.Info().
		Str("pool_id", p.ID).
		Bool("is_active", p.IsActive).
		Time("end_time", p.EndTime).
		Msg("pool upserted")
	return a.GetPool(ctx, p.ID)
}

// view is p as reads see it under the expiry policy
func (a *App) view(p models.LotteryPool, now time.Time) models.LotteryPool {
	if a.expiry == ExpiryDerived {
		return Reconcile(p, now)
	}
	return p
}

func checkReplacement(current, next models.LotteryPool) error {
	var err error
	switch {
	case current.IsActive && next.SoldTickets < current.SoldTickets:
		err = ErrSoldDecreased
	case current.HasWinner() && !next.HasWinner():
		err = ErrWinnerCleared
	}
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidPool, next.ID, err)
	}
	return nil
}

// RecordPurchase adds count sold tickets to a purchasable pool
func (a *App) RecordPurchase(ctx context.Context, id string, count int) (*models.LotteryPool, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: ticket count must be positive", ErrInvalidPool)
	}

	now := a.clock.Now()
	updated, err := a.repo.UpdatePool(ctx, id, func(p *models.LotteryPool) error {
		if !IsPurchasable(a.view(*p, now)) {
			return fmt.Errorf("purchase from pool %q: %w", id, ErrNotPurchasable)
		}
		if count > RemainingTickets(*p) {
			return fmt.Errorf("%w: %q: %w", ErrInvalidPool, id, ErrOversold)
		}
		p.SoldTickets += count
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("pool_id", id).
		Int("count", count).
		Int("sold_tickets", updated.SoldTickets).
		Msg("tickets purchased")
	return updated, nil
}

// SetActive pauses or resumes a pool
func (a *App) SetActive(ctx context.Context, id string, active bool) (*models.LotteryPool, error) {
	updated, err := a.repo.UpdatePool(ctx, id, func(p *models.LotteryPool) error {
		if active && p.HasWinner() {
			return fmt.Errorf("resume pool %q: %w", id, ErrWinnerWhileOpen)
		}
		p.IsActive = active
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("pool_id", id).Bool("is_active", active).Msg("pool activity changed")
	return updated, nil
}

// SetWinner records the winner of a pool that no longer accepts purchases
func (a *App) SetWinner(ctx context.Context, id, winner string) (*models.LotteryPool, error) {
	if winner == "" {
		return nil, fmt.Errorf("%w: winner is required", ErrInvalidPool)
	}

	now := a.clock.Now()
	updated, err := a.repo.UpdatePool(ctx, id, func(p *models.LotteryPool) error {
		current := a.view(*p, now)
		if IsPurchasable(current) {
			return fmt.Errorf("%w: %q: %w", ErrInvalidPool, id, ErrWinnerWhileOpen)
		}
		p.IsActive = current.IsActive
		p.Winner = &winner
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("pool_id", id).Str("winner", winner).Msg("pool winner recorded")
	return updated, nil
}
