package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// saveWithdrawals rewrites the withdrawal request table from st.
func saveWithdrawals(ctx context.Context, tx pgx.Tx, st *store.State) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM withdrawal_requests`)

	for i, w := range st.Withdrawals() {
		batch.Queue(`
			INSERT INTO withdrawal_requests (id, user_id, amount, method, details, status, remark, resolved_by, created_at, resolved_at, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, w.ID, w.UserID, w.Amount.String(), string(w.Method), w.Details, string(w.Status), w.Remark, w.ResolvedBy,
			w.CreatedAt, w.ResolvedAt, i)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save withdrawals: %w", err)
	}
	return nil
}

// loadWithdrawals reads withdrawal requests into st, decoding the payout
// details by method.
func loadWithdrawals(ctx context.Context, tx pgx.Tx, st *store.State) error {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id, amount::text, method, details, status, remark, resolved_by, created_at, resolved_at
		FROM withdrawal_requests
		ORDER BY position
	`)
	if err != nil {
		return fmt.Errorf("failed to load withdrawals: %w", err)
	}
	requests, err := pgx.CollectRows(rows, scanWithdrawal)
	if err != nil {
		return fmt.Errorf("failed to scan withdrawals: %w", err)
	}
	for _, w := range requests {
		st.PutWithdrawal(w)
	}
	return nil
}

func scanWithdrawal(row pgx.CollectableRow) (*model.WithdrawalRequest, error) {
	var (
		w                    model.WithdrawalRequest
		amount, method, stat string
		details              []byte
		resolvedAt           *time.Time
	)
	err := row.Scan(&w.ID, &w.UserID, &amount, &method, &details, &stat, &w.Remark, &w.ResolvedBy, &w.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	w.Method = model.WithdrawalMethod(method)
	w.Status = model.WithdrawalStatus(stat)
	w.ResolvedAt = resolvedAt
	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("withdrawal %s amount: %w", w.ID, err)
	}
	if w.Details, err = decodeDetails(w.Method, details); err != nil {
		return nil, fmt.Errorf("withdrawal %s details: %w", w.ID, err)
	}
	return &w, nil
}

func decodeDetails(method model.WithdrawalMethod, raw []byte) (model.PayoutDetails, error) {
	switch method {
	case model.MethodUPI:
		var d model.UPIDetails
		err := json.Unmarshal(raw, &d)
		return d, err
	case model.MethodBank:
		var d model.BankDetails
		err := json.Unmarshal(raw, &d)
		return d, err
	default:
		return nil, fmt.Errorf("unknown withdrawal method %q", method)
	}
}
