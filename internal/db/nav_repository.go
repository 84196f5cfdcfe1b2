package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orvandal/gridworld/internal/model"
	"github.com/orvandal/gridworld/internal/route"
)

// NavRepository persists player navigation records.
type NavRepository struct {
	pool *pgxpool.Pool
}

// NewNavRepository returns a repository over the given pool.
func NewNavRepository(pool *pgxpool.Pool) *NavRepository {
	return &NavRepository{pool: pool}
}

// Upsert stores a player's navigation record, route word included.
func (r *NavRepository) Upsert(ctx context.Context, rec model.PlayerNavigation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO player_navigation
		   (player_id, move_budget, current_tile, arrival_at, route, frozen_until, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (player_id) DO UPDATE SET
		   move_budget = EXCLUDED.move_budget,
		   current_tile = EXCLUDED.current_tile,
		   arrival_at = EXCLUDED.arrival_at,
		   route = EXCLUDED.route,
		   frozen_until = EXCLUDED.frozen_until,
		   updated_at = EXCLUDED.updated_at`,
		rec.PlayerID, int64(rec.MoveBudget), int32(rec.CurrentTile),
		rec.ArrivalAt, rec.Route[:], rec.FrozenUntil, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upserting navigation of %q: %w", rec.PlayerID, err)
	}
	return nil
}

// LoadAll returns every persisted navigation record.
func (r *NavRepository) LoadAll(ctx context.Context) ([]model.PlayerNavigation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT player_id, move_budget, current_tile, arrival_at, route, frozen_until
		 FROM player_navigation`)
	if err != nil {
		return nil, fmt.Errorf("querying navigation: %w", err)
	}
	defer rows.Close()

	var out []model.PlayerNavigation
	for rows.Next() {
		var (
			rec      model.PlayerNavigation
			budget   int64
			tile     int32
			routeRaw []byte
		)
		if err := rows.Scan(&rec.PlayerID, &budget, &tile, &rec.ArrivalAt, &routeRaw, &rec.FrozenUntil); err != nil {
			return nil, fmt.Errorf("scanning navigation: %w", err)
		}
		rec.MoveBudget = uint32(budget)
		rec.CurrentTile = uint16(tile)
		if len(routeRaw) == route.Size {
			copy(rec.Route[:], routeRaw)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating navigation: %w", err)
	}
	return out, nil
}
