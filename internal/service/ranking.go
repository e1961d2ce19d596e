package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// LeaderboardEntry is one winner's standing.
type LeaderboardEntry struct {
	UserID   string
	Username string
	Wins     int
	Winnings decimal.Decimal
}

// PlatformStats is the owner's overview of the platform.
type PlatformStats struct {
	Revenue            decimal.Decimal // non-refund deposits
	TotalBalance       decimal.Decimal
	Users              int
	BannedUsers        int
	Admins             int
	UpcomingMatches    int
	LiveMatches        int
	CompletedMatches   int
	PendingWithdrawals int
	PendingAmount      decimal.Decimal
}

// RankingService handles the leaderboard and platform statistics.
type RankingService struct {
	store *store.Store
	now   func() time.Time
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(st *store.Store) *RankingService {
	return &RankingService{
		store: st,
		now:   time.Now,
	}
}

// Leaderboard sums prize pools per winner over completed matches, highest first.
func (s *RankingService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byUser := make(map[string]*LeaderboardEntry)
	s.store.View(func(st *store.State) {
		for _, m := range st.Matches() {
			if m.Status != model.StatusCompleted || m.WinnerID == "" {
				continue
			}
			e, ok := byUser[m.WinnerID]
			if !ok {
				e = &LeaderboardEntry{UserID: m.WinnerID, Winnings: decimal.Zero}
				if u, found := st.User(m.WinnerID); found {
					e.Username = u.Username
				}
				byUser[m.WinnerID] = e
			}
			e.Wins++
			e.Winnings = e.Winnings.Add(m.PrizePool)
		}
	})

	board := make([]LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		board = append(board, *e)
	}
	sort.Slice(board, func(i, j int) bool {
		if c := board[i].Winnings.Cmp(board[j].Winnings); c != 0 {
			return c > 0
		}
		return board[i].Username < board[j].Username
	})
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

// Stats returns platform totals for the owner.
func (s *RankingService) Stats(ctx context.Context, actorID string) (PlatformStats, error) {
	if err := ctx.Err(); err != nil {
		return PlatformStats{}, err
	}

	var (
		stats PlatformStats
		err   error
	)
	s.store.View(func(st *store.State) {
		if _, err = requireOwner(st, actorID); err != nil {
			return
		}
		stats = Totals(st, s.now())
	})
	if err != nil {
		return PlatformStats{}, err
	}
	return stats, nil
}

// Totals computes platform statistics over st. Match counts use the status
// derived at now.
func Totals(st *store.State, now time.Time) PlatformStats {
	stats := PlatformStats{Revenue: decimal.Zero, TotalBalance: decimal.Zero, PendingAmount: decimal.Zero}
	for _, tx := range st.Ledger().All() {
		if tx.Kind == model.TxDeposit && !tx.Refund && tx.Status == model.TxSuccess {
			stats.Revenue = stats.Revenue.Add(tx.Amount)
		}
	}
	for _, u := range st.Users() {
		stats.Users++
		if u.Banned {
			stats.BannedUsers++
		}
		stats.TotalBalance = stats.TotalBalance.Add(u.Balance)
	}
	stats.Admins = len(st.Admins())
	for _, m := range st.Matches() {
		switch m.EffectiveStatus(now) {
		case model.StatusUpcoming:
			stats.UpcomingMatches++
		case model.StatusLive:
			stats.LiveMatches++
		case model.StatusCompleted:
			stats.CompletedMatches++
		}
	}
	for _, w := range st.Withdrawals() {
		if w.Status == model.WithdrawalPending {
			stats.PendingWithdrawals++
			stats.PendingAmount = stats.PendingAmount.Add(w.Amount)
		}
	}
	return stats
}
