package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/luckypool/go/internal/models"
)

// MemoryRepository keeps pools in process memory, in insertion order. The
// caller owns their lifetime; nothing is persisted.
type MemoryRepository struct {
	mu    sync.RWMutex
	pools map[string]models.LotteryPool
	order []string
}

// NewMemoryRepository creates a repository seeded with pools
func NewMemoryRepository(seed ...models.LotteryPool) *MemoryRepository {
	r := &MemoryRepository{
		pools: make(map[string]models.LotteryPool, len(seed)),
	}
	for _, p := range seed {
		r.put(p)
	}
	return r
}

// ListPools returns every pool in insertion order
func (r *MemoryRepository) ListPools(ctx context.Context) ([]models.LotteryPool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pools := make([]models.LotteryPool, 0, len(r.order))
	for _, id := range r.order {
		pools = append(pools, r.pools[id].Clone())
	}
	return pools, nil
}

// GetPool retrieves a pool by ID
func (r *MemoryRepository) GetPool(ctx context.Context, id string) (*models.LotteryPool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("get pool %q: %w", id, ErrNotFound)
	}
	clone := p.Clone()
	return &clone, nil
}

// SavePool inserts or replaces a pool
func (r *MemoryRepository) SavePool(ctx context.Context, p models.LotteryPool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(p)
	return nil
}

// UpdatePool applies fn to the stored pool under the write lock. The result
// is stored only when fn returns nil.
func (r *MemoryRepository) UpdatePool(ctx context.Context, id string, fn func(*models.LotteryPool) error) (*models.LotteryPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("update pool %q: %w", id, ErrNotFound)
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	r.pools[id] = next

	out := next.Clone()
	return &out, nil
}

// Count returns the number of stored pools
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *MemoryRepository) put(p models.LotteryPool) {
	if _, exists := r.pools[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.pools[p.ID] = p.Clone()
}
