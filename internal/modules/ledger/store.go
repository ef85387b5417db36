// README: Receipt store backed by PostgreSQL. Append-only.
package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// db is the subset of *pgxpool.Pool used by Store.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS ride_receipts (
    id               BIGSERIAL PRIMARY KEY,
    ride_id          TEXT NOT NULL,
    rider_id         TEXT NOT NULL,
    driver_id        TEXT NOT NULL,
    vehicle_class    TEXT NOT NULL,
    distance_km      DOUBLE PRECISION NOT NULL,
    fare             DOUBLE PRECISION NOT NULL,
    fare_description TEXT NOT NULL,
    completed_at     TIMESTAMPTZ NOT NULL,
    UNIQUE (ride_id, completed_at)
)`

type Store struct {
	db db
}

func NewStore(db db) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ride_receipts: %w", err)
	}
	return nil
}

// Append records a receipt. A repeated receipt for the same completion is ignored.
// Ride ids restart with the process, so the completion time is part of the key.
func (s *Store) Append(ctx context.Context, r Receipt) error {
	if err := r.validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO ride_receipts (
            ride_id, rider_id, driver_id, vehicle_class,
            distance_km, fare, fare_description, completed_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (ride_id, completed_at) DO NOTHING`,
		string(r.RideID),
		string(r.RiderID),
		string(r.DriverID),
		string(r.VehicleClass),
		r.DistanceKm,
		r.Fare,
		r.FareDescription,
		r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("append receipt %s: %w", r.RideID, err)
	}
	return nil
}

// Recent returns up to limit receipts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
        SELECT ride_id, rider_id, driver_id, vehicle_class,
               distance_km, fare, fare_description, completed_at
        FROM ride_receipts
        ORDER BY completed_at DESC, id DESC
        LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(
			&r.RideID, &r.RiderID, &r.DriverID, &r.VehicleClass,
			&r.DistanceKm, &r.Fare, &r.FareDescription, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
