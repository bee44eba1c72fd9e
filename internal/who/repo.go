package who

import "context"

// Repo persists WHO indicators.
type Repo interface {
	SaveAll(ctx context.Context, indicators []Indicator) error
	ListByCountry(ctx context.Context, country string) ([]Indicator, error)
}
