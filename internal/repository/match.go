package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// saveMatches rewrites the match and participant tables from st.
func saveMatches(ctx context.Context, tx pgx.Tx, st *store.State) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM participants`)
	batch.Queue(`DELETE FROM matches`)

	for i, m := range st.Matches() {
		var roomID, roomPassword *string
		if m.Room != nil {
			roomID, roomPassword = &m.Room.ID, &m.Room.Password
		}
		batch.Queue(`
			INSERT INTO matches (id, title, game_mode, sub_mode, entry_fee, prize_pool, total_slots, scheduled_at,
				map, perspective, rules, status, room_id, room_password, winner_id, created_by, created_at, completed_at, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, m.ID, m.Title, string(m.GameMode), string(m.SubMode), m.EntryFee.String(), m.PrizePool.String(), m.TotalSlots,
			m.ScheduledAt, m.Map, string(m.Perspective), m.Rules, string(m.Status), roomID, roomPassword, m.WinnerID,
			m.CreatedBy, m.CreatedAt, m.CompletedAt, i)

		for slot, p := range m.Participants {
			var rank, kills *int
			if p.Performance != nil {
				rank, kills = &p.Performance.Rank, &p.Performance.Kills
			}
			batch.Queue(`
				INSERT INTO participants (match_id, user_id, slot, team, rank, kills, joined_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, m.ID, p.UserID, slot+1, p.Team, rank, kills, p.JoinedAt)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save matches: %w", err)
	}
	return nil
}

// loadMatches reads matches and rosters into st and rebuilds each user's
// joined list and each admin's created list.
func loadMatches(ctx context.Context, tx pgx.Tx, st *store.State) error {
	rows, err := tx.Query(ctx, `
		SELECT id, title, game_mode, sub_mode, entry_fee::text, prize_pool::text, total_slots, scheduled_at,
			map, perspective, rules, status, room_id, room_password, winner_id, created_by, created_at, completed_at
		FROM matches
		ORDER BY position
	`)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}
	matches, err := pgx.CollectRows(rows, scanMatch)
	if err != nil {
		return fmt.Errorf("failed to scan matches: %w", err)
	}
	for _, m := range matches {
		st.PutMatch(m)
		if a, ok := st.Admin(m.CreatedBy); ok {
			a.CreatedMatchIDs = append(a.CreatedMatchIDs, m.ID)
		}
	}

	rows, err = tx.Query(ctx, `
		SELECT match_id, user_id, team, rank, kills, joined_at
		FROM participants
		ORDER BY match_id, slot
	`)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	type participantRow struct {
		matchID string
		p       model.Participant
	}
	parts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (participantRow, error) {
		var (
			r           participantRow
			rank, kills *int
		)
		if err := row.Scan(&r.matchID, &r.p.UserID, &r.p.Team, &rank, &kills, &r.p.JoinedAt); err != nil {
			return r, err
		}
		if rank != nil && kills != nil {
			r.p.Performance = &model.Performance{Rank: *rank, Kills: *kills}
		}
		return r, nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan participants: %w", err)
	}

	joined := make(map[string][]participantRow)
	for _, r := range parts {
		if m, ok := st.Match(r.matchID); ok {
			m.Participants = append(m.Participants, r.p)
		}
		joined[r.p.UserID] = append(joined[r.p.UserID], r)
	}
	for userID, rs := range joined {
		u, ok := st.User(userID)
		if !ok {
			continue
		}
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].p.JoinedAt.Before(rs[j].p.JoinedAt) })
		for _, r := range rs {
			u.JoinedMatchIDs = append(u.JoinedMatchIDs, r.matchID)
		}
	}
	return nil
}

func scanMatch(row pgx.CollectableRow) (*model.Match, error) {
	var (
		m                      model.Match
		fee, prize             string
		mode, sub, persp, stat string
		roomID, roomPassword   *string
		completedAt            *time.Time
	)
	err := row.Scan(&m.ID, &m.Title, &mode, &sub, &fee, &prize, &m.TotalSlots, &m.ScheduledAt,
		&m.Map, &persp, &m.Rules, &stat, &roomID, &roomPassword, &m.WinnerID, &m.CreatedBy, &m.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	m.GameMode = model.GameMode(mode)
	m.SubMode = model.SubMode(sub)
	m.Perspective = model.Perspective(persp)
	m.Status = model.MatchStatus(stat)
	m.CompletedAt = completedAt
	if roomID != nil && roomPassword != nil {
		m.Room = &model.RoomDetails{ID: *roomID, Password: *roomPassword}
	}
	if m.EntryFee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("match %s entry fee: %w", m.ID, err)
	}
	if m.PrizePool, err = decimal.NewFromString(prize); err != nil {
		return nil, fmt.Errorf("match %s prize pool: %w", m.ID, err)
	}
	return &m, nil
}
