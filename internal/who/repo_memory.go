package who

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores indicators in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu         sync.RWMutex
	indicators []Indicator
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// SaveAll appends all indicators.
func (r *MemoryRepo) SaveAll(ctx context.Context, indicators []Indicator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indicators = append(r.indicators, indicators...)
	return nil
}

// ListByCountry returns all indicators for a country ordered by year.
func (r *MemoryRepo) ListByCountry(ctx context.Context, country string) ([]Indicator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Indicator
	for _, ind := range r.indicators {
		if ind.Country == country {
			out = append(out, ind)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Indicator < out[j].Indicator
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
