package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sequencer hands out monotonically increasing numbers per (clinic, name)
// pair using an atomic upsert on the counters table. Safe under concurrent
// callers: the database serializes the increment, so two concurrent
// reservations can never observe the same value.
type Sequencer struct {
	pool *pgxpool.Pool
}

func NewSequencer(pool *pgxpool.Pool) *Sequencer {
	return &Sequencer{pool: pool}
}

// Next reserves and returns the next value of the named counter for the
// clinic. The first reservation returns 1.
func (s *Sequencer) Next(ctx context.Context, clinicID uuid.UUID, name string) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO counters (clinic_id, name, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (clinic_id, name)
		DO UPDATE SET value = counters.value + 1
		RETURNING value`,
		clinicID, name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("reserve counter %s: %w", name, err)
	}
	return value, nil
}
