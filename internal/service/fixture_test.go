package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"arena-bot/internal/game"
	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

const (
	testOwnerID = "owner-1"
	testAdminID = "admin-1"
	roomWindow  = 15 * time.Minute
)

// tb is satisfied by both *testing.T and *rapid.T.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// arena wires every service to one store and one fake clock.
type arena struct {
	store       *store.Store
	clock       *fakeClock
	accounts    *AccountService
	matches     *MatchService
	withdrawals *WithdrawalService
	directory   *DirectoryService
	sessions    *SessionManager
	ranking     *RankingService
}

func newArena(t tb) *arena {
	t.Helper()

	st := store.New(nil)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	a := &arena{
		store:       st,
		clock:       clock,
		accounts:    NewAccountService(st),
		matches:     NewMatchService(st, game.DefaultRegistry, roomWindow),
		withdrawals: NewWithdrawalService(st),
		directory:   NewDirectoryService(st),
		ranking:     NewRankingService(st),
	}
	a.sessions = NewSessionManager(a.directory)
	a.accounts.now = clock.Now
	a.matches.now = clock.Now
	a.withdrawals.now = clock.Now
	a.directory.now = clock.Now
	a.ranking.now = clock.Now

	err := a.directory.ApplySeed(context.Background(), Seed{
		Owner:  model.Owner{ID: testOwnerID, Credentials: model.Credentials{Username: "boss", Password: "boss-pw"}},
		Admins: []model.Admin{{ID: testAdminID, Credentials: model.Credentials{Username: "admin", Password: "admin-pw"}}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return a
}

// addUser seeds a user with an opening balance and returns its id.
func (a *arena) addUser(t tb, username string, balance int64) string {
	t.Helper()
	id := "user-" + username
	err := a.directory.ApplySeed(context.Background(), Seed{Users: []SeedUser{{
		ID: id, Username: username, Password: "pw", OpeningBalance: dec(balance),
	}}})
	if err != nil {
		t.Fatalf("add user %s: %v", username, err)
	}
	return id
}

// addMatch creates a match starting in one hour.
func (a *arena) addMatch(t tb, mode model.GameMode, sub model.SubMode, fee int64) *model.Match {
	t.Helper()
	m, err := a.matches.Create(context.Background(), testAdminID, MatchSpec{
		Title:       string(mode) + " " + string(sub),
		GameMode:    mode,
		SubMode:     sub,
		EntryFee:    dec(fee),
		PrizePool:   dec(fee * 10),
		ScheduledAt: a.clock.Now().Add(time.Hour),
		Map:         "Bermuda",
	})
	if err != nil {
		t.Fatalf("create match: %v", err)
	}
	return m
}

func (a *arena) user(t tb, id string) *model.User {
	t.Helper()
	var u *model.User
	a.store.View(func(st *store.State) {
		if found, ok := st.User(id); ok {
			u = found.Clone()
		}
	})
	if u == nil {
		t.Fatalf("user %s not found", id)
	}
	return u
}

func (a *arena) match(t tb, id string) *model.Match {
	t.Helper()
	var m *model.Match
	a.store.View(func(st *store.State) {
		if found, ok := st.Match(id); ok {
			m = found.Clone()
		}
	})
	if m == nil {
		t.Fatalf("match %s not found", id)
	}
	return m
}

func (a *arena) ledgerLen() int {
	var n int
	a.store.View(func(st *store.State) { n = st.Ledger().Len() })
	return n
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func team(n int) []model.PlayerDetails {
	players := make([]model.PlayerDetails, n)
	for i := range players {
		players[i] = model.PlayerDetails{Name: "Player" + strconv.Itoa(i+1), GameUID: strconv.Itoa(100000 + i)}
	}
	return players
}
