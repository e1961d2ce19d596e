package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"arena-bot/internal/store"
)

// SnapshotRepository saves and loads whole arena states. Each call runs in a
// single database transaction, so a stored snapshot is never half-written.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository instance.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Save implements store.Persister.
func (r *SnapshotRepository) Save(ctx context.Context, st *store.State) error {
	start := time.Now()
	var appended int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := saveAccounts(ctx, tx, st); err != nil {
			return err
		}
		if err := saveMatches(ctx, tx, st); err != nil {
			return err
		}
		if err := saveWithdrawals(ctx, tx, st); err != nil {
			return err
		}
		var err error
		appended, err = appendLedger(ctx, tx, st.Ledger())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	log.Debug().
		Int("users", len(st.Users())).
		Int("matches", len(st.Matches())).
		Int("ledger_appended", appended).
		Dur("took", time.Since(start)).
		Msg("Snapshot saved")
	return nil
}

// Load implements store.Persister. An empty database yields an empty state.
func (r *SnapshotRepository) Load(ctx context.Context) (*store.State, error) {
	st := store.NewState()
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead}, func(tx pgx.Tx) error {
		if err := loadAccounts(ctx, tx, st); err != nil {
			return err
		}
		if err := loadMatches(ctx, tx, st); err != nil {
			return err
		}
		if err := loadWithdrawals(ctx, tx, st); err != nil {
			return err
		}
		return loadLedger(ctx, tx, st)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	log.Info().
		Int("users", len(st.Users())).
		Int("admins", len(st.Admins())).
		Int("matches", len(st.Matches())).
		Int("transactions", st.Ledger().Len()).
		Msg("Snapshot loaded")
	return st, nil
}
