package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"arena-bot/internal/game"
	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// checkInvariants verifies the cross-entity invariants on the committed state.
func checkInvariants(t *rapid.T, a *arena) {
	t.Helper()
	a.store.View(func(st *store.State) {
		for _, u := range st.Users() {
			if u.Balance.IsNegative() {
				t.Fatalf("user %s has negative balance %s", u.ID, u.Balance)
			}
			if want := u.OpeningBalance.Add(st.Ledger().Net(u.ID)); !want.Equal(u.Balance) {
				t.Fatalf("user %s balance %s does not reconcile to %s", u.ID, u.Balance, want)
			}
			for _, mid := range u.JoinedMatchIDs {
				m, ok := st.Match(mid)
				if !ok || m.ParticipantIndex(u.ID) < 0 {
					t.Fatalf("user %s lists match %s but is not on its roster", u.ID, mid)
				}
			}
		}
		for _, m := range st.Matches() {
			if len(m.Participants) > m.TotalSlots {
				t.Fatalf("match %s has %d participants for %d slots", m.ID, len(m.Participants), m.TotalSlots)
			}
			if m.TotalSlots != game.AutoSlots(m.GameMode, m.SubMode) {
				t.Fatalf("match %s slots %d do not follow its format", m.ID, m.TotalSlots)
			}
			for _, p := range m.Participants {
				u, ok := st.User(p.UserID)
				if !ok || !u.HasJoined(m.ID) {
					t.Fatalf("participant %s of match %s does not list it as joined", p.UserID, m.ID)
				}
			}
		}
	})
}

// Random interleavings of every wallet and roster command keep the state consistent.
func TestArenaInvariantsProperty(t *testing.T) {
	formats := game.Formats()

	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		a := newArena(t)

		var users, matches, withdrawals []string
		for i := 0; i < 3; i++ {
			users = append(users, a.addUser(t, "u"+string(rune('a'+i)), int64(rapid.IntRange(0, 60).Draw(t, "opening"))))
		}
		completed := map[string]bool{}
		wentLive := map[string]bool{}

		t.Repeat(map[string]func(*rapid.T){
			"create": func(t *rapid.T) {
				f := rapid.SampledFrom(formats).Draw(t, "format")
				fee := int64(rapid.IntRange(0, 30).Draw(t, "fee"))
				m, err := a.matches.Create(ctx, testAdminID, MatchSpec{
					Title: "m", GameMode: f.Mode, SubMode: f.SubMode, EntryFee: dec(fee),
					ScheduledAt: a.clock.Now().Add(time.Duration(rapid.IntRange(1, 120).Draw(t, "minutes")) * time.Minute),
				})
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				matches = append(matches, m.ID)
			},
			"join": func(t *rapid.T) {
				if len(matches) == 0 {
					t.Skip("no matches")
				}
				uid := rapid.SampledFrom(users).Draw(t, "user")
				mid := rapid.SampledFrom(matches).Draw(t, "match")
				m := a.match(t, mid)
				before := a.user(t, uid).Balance
				_, err := a.matches.Join(ctx, uid, mid, team(game.TeamSize(m.SubMode)))
				if errors.Is(err, ErrInsufficientFunds) && !before.Equal(a.user(t, uid).Balance) {
					t.Fatalf("rejected join changed the balance")
				}
			},
			"leave": func(t *rapid.T) {
				if len(matches) == 0 {
					t.Skip("no matches")
				}
				_ = a.matches.Leave(ctx, rapid.SampledFrom(users).Draw(t, "user"), rapid.SampledFrom(matches).Draw(t, "match"))
			},
			"deposit": func(t *rapid.T) {
				_, _ = a.accounts.Deposit(ctx, rapid.SampledFrom(users).Draw(t, "user"), dec(int64(rapid.IntRange(-5, 50).Draw(t, "amount"))))
			},
			"adjust": func(t *rapid.T) {
				_, _ = a.accounts.AdjustBalance(ctx, testOwnerID, rapid.SampledFrom(users).Draw(t, "user"),
					dec(int64(rapid.IntRange(1, 40).Draw(t, "amount"))), rapid.Bool().Draw(t, "add"))
			},
			"withdraw": func(t *rapid.T) {
				w, err := a.withdrawals.Request(ctx, rapid.SampledFrom(users).Draw(t, "user"),
					dec(int64(rapid.IntRange(1, 40).Draw(t, "amount"))), model.UPIDetails{UPIID: "x@upi"})
				if err == nil {
					withdrawals = append(withdrawals, w.ID)
				}
			},
			"resolve": func(t *rapid.T) {
				if len(withdrawals) == 0 {
					t.Skip("no withdrawals")
				}
				_, _ = a.withdrawals.Resolve(ctx, testAdminID, rapid.SampledFrom(withdrawals).Draw(t, "withdrawal"), rapid.Bool().Draw(t, "approve"), "")
			},
			"results": func(t *rapid.T) {
				if len(matches) == 0 {
					t.Skip("no matches")
				}
				mid := rapid.SampledFrom(matches).Draw(t, "match")
				m := a.match(t, mid)
				if len(m.Participants) == 0 {
					t.Skip("empty roster")
				}
				if err := a.matches.PostResults(ctx, testAdminID, mid, Results{WinnerID: m.Participants[0].UserID}); err == nil {
					completed[mid] = true
				}
			},
			"reschedule": func(t *rapid.T) {
				if len(matches) == 0 {
					t.Skip("no matches")
				}
				m := a.match(t, rapid.SampledFrom(matches).Draw(t, "match"))
				_, _ = a.matches.Edit(ctx, testAdminID, m.ID, MatchSpec{
					Title: m.Title, GameMode: m.GameMode, SubMode: m.SubMode, EntryFee: m.EntryFee, PrizePool: m.PrizePool,
					ScheduledAt: a.clock.Now().Add(time.Duration(rapid.IntRange(-60, 120).Draw(t, "shift")) * time.Minute),
				})
			},
			"tick": func(t *rapid.T) {
				a.clock.Advance(time.Duration(rapid.IntRange(1, 30).Draw(t, "minutes")) * time.Minute)
			},
			"": func(t *rapid.T) {
				checkInvariants(t, a)
				for mid := range completed {
					if a.match(t, mid).Status != model.StatusCompleted {
						t.Fatalf("match %s regressed from Completed", mid)
					}
				}
				for _, mid := range matches {
					status := a.match(t, mid).EffectiveStatus(a.clock.Now())
					if wentLive[mid] && status == model.StatusUpcoming {
						t.Fatalf("match %s went back from Live to Upcoming", mid)
					}
					if status == model.StatusLive {
						wentLive[mid] = true
					}
				}
			},
		})
	})
}

// Joining and leaving a free match changes neither balance nor ledger.
func TestFreeJoinLeaveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		a := newArena(t)
		opening := int64(rapid.IntRange(0, 1000).Draw(t, "opening"))
		uid := a.addUser(t, "player", opening)
		f := rapid.SampledFrom(game.Formats()).Draw(t, "format")
		m := a.addMatch(t, f.Mode, f.SubMode, 0)

		if _, err := a.matches.Join(ctx, uid, m.ID, team(f.TeamSize)); err != nil {
			t.Fatalf("join: %v", err)
		}
		if err := a.matches.Leave(ctx, uid, m.ID); err != nil {
			t.Fatalf("leave: %v", err)
		}
		if !a.user(t, uid).Balance.Equal(dec(opening)) || a.ledgerLen() != 0 {
			t.Fatalf("free round trip touched the wallet")
		}
	})
}

// A paid join followed by leave restores the balance with exactly two entries.
func TestPaidJoinLeaveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		a := newArena(t)
		fee := int64(rapid.IntRange(1, 100).Draw(t, "fee"))
		opening := int64(rapid.IntRange(0, 200).Draw(t, "opening"))
		uid := a.addUser(t, "player", opening)
		m := a.addMatch(t, model.BattleRoyale, model.Solo, fee)

		_, err := a.matches.Join(ctx, uid, m.ID, team(1))
		if opening < fee {
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("join with %d for fee %d: got %v", opening, fee, err)
			}
			if !a.user(t, uid).Balance.Equal(dec(opening)) || a.ledgerLen() != 0 {
				t.Fatalf("rejected join touched the wallet")
			}
			return
		}
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		if !a.user(t, uid).Balance.Equal(dec(opening - fee)) {
			t.Fatalf("join did not charge exactly the fee")
		}
		if err := a.matches.Leave(ctx, uid, m.ID); err != nil {
			t.Fatalf("leave: %v", err)
		}
		if !a.user(t, uid).Balance.Equal(dec(opening)) || a.ledgerLen() != 2 {
			t.Fatalf("paid round trip: balance %s, %d entries", a.user(t, uid).Balance, a.ledgerLen())
		}
	})
}

// Capacity is never exceeded however many users try to join.
func TestCapacityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		a := newArena(t)
		f := rapid.SampledFrom(game.Formats()).Draw(t, "format")
		m := a.addMatch(t, f.Mode, f.SubMode, 0)
		n := rapid.IntRange(1, f.Slots+5).Draw(t, "joiners")

		full := 0
		for i := 0; i < n; i++ {
			uid := a.addUser(t, "p"+string(rune('A'+i%26))+string(rune('a'+i/26)), 0)
			if _, err := a.matches.Join(ctx, uid, m.ID, team(f.TeamSize)); errors.Is(err, ErrMatchFull) {
				full++
			} else if err != nil {
				t.Fatalf("join: %v", err)
			}
		}
		got := len(a.match(t, m.ID).Participants)
		if got > f.Slots || got+full != n {
			t.Fatalf("%d participants, %d rejected, %d slots, %d joiners", got, full, f.Slots, n)
		}
	})
}

// A withdrawal debits exactly the amount and leaves a Pending request.
func TestWithdrawalReservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		a := newArena(t)
		opening := int64(rapid.IntRange(0, 500).Draw(t, "opening"))
		amount := int64(rapid.IntRange(1, 600).Draw(t, "amount"))
		uid := a.addUser(t, "player", opening)

		w, err := a.withdrawals.Request(ctx, uid, dec(amount), model.UPIDetails{UPIID: "p@upi"})
		if amount > opening {
			if !errors.Is(err, ErrInsufficientFunds) || !a.user(t, uid).Balance.Equal(dec(opening)) {
				t.Fatalf("overdraw: err=%v balance=%s", err, a.user(t, uid).Balance)
			}
			return
		}
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if w.Status != model.WithdrawalPending || !a.user(t, uid).Balance.Equal(dec(opening-amount)) {
			t.Fatalf("status %s, balance %s", w.Status, a.user(t, uid).Balance)
		}
	})
}
