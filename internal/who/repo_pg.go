package who

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// SaveAll inserts all indicators in one transaction.
func (r *PGRepo) SaveAll(ctx context.Context, indicators []Indicator) error {
	const query = `
INSERT INTO who_indicators (id, country, year, indicator, value, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ind := range indicators {
		if _, err := tx.ExecContext(ctx, query,
			ind.ID, ind.Country, ind.Year, ind.Indicator, ind.Value, ind.UploadedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByCountry returns all indicators for a country ordered by year.
func (r *PGRepo) ListByCountry(ctx context.Context, country string) ([]Indicator, error) {
	const query = `
SELECT id, country, year, indicator, value, uploaded_at
FROM who_indicators
WHERE country = $1
ORDER BY year, indicator`

	rows, err := r.DB.QueryContext(ctx, query, country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Indicator
	for rows.Next() {
		var ind Indicator
		if err := rows.Scan(&ind.ID, &ind.Country, &ind.Year, &ind.Indicator, &ind.Value, &ind.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
