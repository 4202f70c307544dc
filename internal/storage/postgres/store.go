package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"remediPair/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for pair events and pool state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutEvents inserts pair events. Replayed events keep their first row.
func (s *Store) PutEvents(ctx context.Context, events []model.PairEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO pair_events (
				pair, sequence, kind, account, amount_a, amount_b, shares,
				input_asset, amount_in, amount_out, reserve_a, reserve_b, share_supply, event_ts
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (pair, sequence) DO NOTHING
		`,
			e.Pair,
			int64(e.Sequence),
			e.Kind,
			e.Account,
			nullable(e.AmountA),
			nullable(e.AmountB),
			nullable(e.Shares),
			nullable(e.InputAsset),
			nullable(e.AmountIn),
			nullable(e.AmountOut),
			e.ReserveA,
			e.ReserveB,
			e.ShareSupply,
			e.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPoolState returns the saved state for a pair name.
func (s *Store) LoadPoolState(ctx context.Context, name string) (model.PoolState, bool, error) {
	if name == "" {
		return model.PoolState{}, false, fmt.Errorf("state name required")
	}
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT state FROM pair_state WHERE name=$1`, name)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolState{}, false, nil
		}
		return model.PoolState{}, false, err
	}
	var state model.PoolState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.PoolState{}, false, fmt.Errorf("parse pool state: %w", err)
	}
	return state, true, nil
}

// SavePoolState upserts the state for a pair name.
func (s *Store) SavePoolState(ctx context.Context, name string, state model.PoolState) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal pool state: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pair_state (name, state, sequence, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET state = EXCLUDED.state, sequence = EXCLUDED.sequence, updated_at = now()
	`, name, raw, int64(state.Sequence))
	return err
}

// nullable maps an omitted field to NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
