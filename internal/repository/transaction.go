package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// appendLedger inserts the ledger entries not yet stored. The ledger is
// append-only, so stored rows are a prefix of it and are never rewritten.
func appendLedger(ctx context.Context, tx pgx.Tx, ledger *store.Ledger) (int, error) {
	var stored int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&stored); err != nil {
		return 0, fmt.Errorf("failed to count stored transactions: %w", err)
	}
	entries := ledger.All()
	if stored > len(entries) {
		return 0, fmt.Errorf("stored ledger has %d entries, state only %d", stored, len(entries))
	}

	batch := &pgx.Batch{}
	for seq := stored; seq < len(entries); seq++ {
		e := entries[seq]
		batch.Queue(`
			INSERT INTO transactions (seq, id, user_id, amount, kind, refund, match_id, withdrawal_id, actor_id, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, seq, e.ID, e.UserID, e.Amount.String(), string(e.Kind), e.Refund, e.MatchID, e.WithdrawalID, e.ActorID, string(e.Status), e.CreatedAt)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to append transactions: %w", err)
	}
	return batch.Len(), nil
}

// loadLedger replays the stored entries in sequence order.
func loadLedger(ctx context.Context, tx pgx.Tx, st *store.State) error {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id, amount::text, kind, refund, match_id, withdrawal_id, actor_id, status, created_at
		FROM transactions
		ORDER BY seq
	`)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Transaction, error) {
		var (
			e            model.Transaction
			amount       string
			kind, status string
		)
		err := row.Scan(&e.ID, &e.UserID, &amount, &kind, &e.Refund, &e.MatchID, &e.WithdrawalID, &e.ActorID, &status, &e.CreatedAt)
		if err != nil {
			return e, err
		}
		e.Kind = model.TxKind(kind)
		e.Status = model.TxStatus(status)
		e.Amount, err = decimal.NewFromString(amount)
		return e, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan transactions: %w", err)
	}
	for _, e := range entries {
		st.Ledger().Append(e)
	}
	return nil
}
