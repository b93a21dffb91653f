// README: Rate store backed by PostgreSQL; rates are loaded once at startup.
package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// LoadRates reads the fare schedule from the fare_rates table. Returns
// an empty map (not an error) when the table has no rows; callers fall
// back to DefaultRates.
func (s *Store) LoadRates(ctx context.Context) (map[VehicleClass]Rate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT vehicle_class, base_fare, per_km, per_min, min_fare, currency
		FROM fare_rates`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rates := make(map[VehicleClass]Rate)
	for rows.Next() {
		var r Rate
		if err := rows.Scan(&r.Class, &r.BaseFare, &r.PerKm, &r.PerMin, &r.MinFare, &r.Currency); err != nil {
			return nil, err
		}
		rates[r.Class] = r
	}
	return rates, rows.Err()
}
