package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// saveAccounts rewrites the owner, admin and user tables from st.
func saveAccounts(ctx context.Context, tx pgx.Tx, st *store.State) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM owners`)
	batch.Queue(`DELETE FROM admins`)
	batch.Queue(`DELETE FROM users`)

	if o := st.Owner(); o != nil {
		batch.Queue(`INSERT INTO owners (id, username, password) VALUES ($1, $2, $3)`,
			o.ID, o.Username, o.Password)
	}
	for i, a := range st.Admins() {
		batch.Queue(`
			INSERT INTO admins (id, username, password, position, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, a.ID, a.Username, a.Password, i, a.CreatedAt)
	}
	for i, u := range st.Users() {
		batch.Queue(`
			INSERT INTO users (id, username, password, email, balance, opening_balance, banned, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, u.ID, u.Username, u.Password, u.Email, u.Balance.String(), u.OpeningBalance.String(), u.Banned, i, u.CreatedAt)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	return nil
}

// loadAccounts reads the owner, admins and users into st. Joined and created
// match lists are rebuilt later from the match tables.
func loadAccounts(ctx context.Context, tx pgx.Tx, st *store.State) error {
	var owner model.Owner
	err := tx.QueryRow(ctx, `SELECT id, username, password FROM owners LIMIT 1`).
		Scan(&owner.ID, &owner.Username, &owner.Password)
	switch {
	case err == nil:
		st.SetOwner(&owner)
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return fmt.Errorf("failed to load owner: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT id, username, password, created_at FROM admins ORDER BY position`)
	if err != nil {
		return fmt.Errorf("failed to load admins: %w", err)
	}
	admins, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Admin, error) {
		var a model.Admin
		err := row.Scan(&a.ID, &a.Username, &a.Password, &a.CreatedAt)
		return &a, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan admins: %w", err)
	}
	for _, a := range admins {
		st.PutAdmin(a)
	}

	rows, err = tx.Query(ctx, `
		SELECT id, username, password, email, balance::text, opening_balance::text, banned, created_at
		FROM users
		ORDER BY position
	`)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	users, err := pgx.CollectRows(rows, scanUser)
	if err != nil {
		return fmt.Errorf("failed to scan users: %w", err)
	}
	for _, u := range users {
		st.PutUser(u)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (*model.User, error) {
	var (
		u                model.User
		balance, opening string
		createdAt        time.Time
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Email, &balance, &opening, &u.Banned, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if u.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("user %s balance: %w", u.ID, err)
	}
	if u.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return nil, fmt.Errorf("user %s opening balance: %w", u.ID, err)
	}
	u.CreatedAt = createdAt
	return &u, nil
}
