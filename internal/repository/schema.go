// Package repository persists arena state snapshots to PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []struct {
	name string
	sql  string
}{
	{"owners table", `
		CREATE TABLE IF NOT EXISTS owners (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			password TEXT NOT NULL
		)
	`},
	{"admins table", `
		CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			position INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`},
	{"users table", `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			balance NUMERIC(20, 2) NOT NULL CHECK (balance >= 0),
			opening_balance NUMERIC(20, 2) NOT NULL DEFAULT 0,
			banned BOOLEAN NOT NULL DEFAULT FALSE,
			position INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`},
	{"matches table", `
		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			game_mode TEXT NOT NULL,
			sub_mode TEXT NOT NULL,
			entry_fee NUMERIC(20, 2) NOT NULL,
			prize_pool NUMERIC(20, 2) NOT NULL,
			total_slots INT NOT NULL,
			scheduled_at TIMESTAMPTZ NOT NULL,
			map TEXT NOT NULL DEFAULT '',
			perspective TEXT NOT NULL,
			rules TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			room_id TEXT,
			room_password TEXT,
			winner_id TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			position INT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_matches_created_by ON matches(created_by)
	`},
	{"participants table", `
		CREATE TABLE IF NOT EXISTS participants (
			match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			slot INT NOT NULL,
			team JSONB NOT NULL,
			rank INT,
			kills INT,
			joined_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (match_id, user_id)
		)
	`},
	{"transactions table", `
		CREATE TABLE IF NOT EXISTS transactions (
			seq BIGINT PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			amount NUMERIC(20, 2) NOT NULL CHECK (amount > 0),
			kind TEXT NOT NULL,
			refund BOOLEAN NOT NULL DEFAULT FALSE,
			match_id TEXT NOT NULL DEFAULT '',
			withdrawal_id TEXT NOT NULL DEFAULT '',
			actor_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, seq)
	`},
	{"withdrawal_requests table", `
		CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			amount NUMERIC(20, 2) NOT NULL,
			method TEXT NOT NULL,
			details JSONB NOT NULL,
			status TEXT NOT NULL,
			remark TEXT NOT NULL DEFAULT '',
			resolved_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ,
			position INT NOT NULL
		)
	`},
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
