package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-bot/internal/model"
)

func TestJoin_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "noob", 10)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 25)

	_, err := a.matches.Join(ctx, uid, m.ID, team(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, a.user(t, uid).Balance.Equal(dec(10)))
	assert.Empty(t, a.match(t, m.ID).Participants)
	assert.Empty(t, a.user(t, uid).JoinedMatchIDs)
	assert.Equal(t, 0, a.ledgerLen())
}

func TestJoin_FreeDuo(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 50)
	m := a.addMatch(t, model.BattleRoyale, model.Duo, 0)
	require.Equal(t, 25, m.TotalSlots)

	slot, err := a.matches.Join(ctx, uid, m.ID, team(2))
	require.NoError(t, err)
	assert.Equal(t, 1, slot)

	got := a.match(t, m.ID)
	require.Len(t, got.Participants, 1)
	assert.Len(t, got.Participants[0].Team, 2)
	assert.True(t, a.user(t, uid).Balance.Equal(dec(50)))
	assert.Equal(t, []string{m.ID}, a.user(t, uid).JoinedMatchIDs)
	assert.Equal(t, 0, a.ledgerLen())
}

func TestJoin_PaidChargesOnce(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 50)
	m := a.addMatch(t, model.LoneWolf, model.OneVOne, 20)

	_, err := a.matches.Join(ctx, uid, m.ID, team(1))
	require.NoError(t, err)

	assert.True(t, a.user(t, uid).Balance.Equal(dec(30)))
	txs, err := a.accounts.Transactions(ctx, uid)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxEntryFee, txs[0].Kind)
	assert.Equal(t, m.ID, txs[0].MatchID)
	assert.True(t, txs[0].Amount.Equal(dec(20)))

	_, err = a.matches.Join(ctx, uid, m.ID, team(1))
	require.ErrorIs(t, err, ErrAlreadyJoined)
	assert.True(t, a.user(t, uid).Balance.Equal(dec(30)))
}

func TestJoin_Validation(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 50)
	squad := a.addMatch(t, model.BattleRoyale, model.Squad, 0)

	tests := []struct {
		name string
		team []model.PlayerDetails
	}{
		{"too few players", team(3)},
		{"too many players", team(5)},
		{"blank name", []model.PlayerDetails{{Name: "  ", GameUID: "1"}, {Name: "b", GameUID: "2"}, {Name: "c", GameUID: "3"}, {Name: "d", GameUID: "4"}}},
		{"non numeric uid", []model.PlayerDetails{{Name: "a", GameUID: "12ab"}, {Name: "b", GameUID: "2"}, {Name: "c", GameUID: "3"}, {Name: "d", GameUID: "4"}}},
		{"empty uid", []model.PlayerDetails{{Name: "a", GameUID: ""}, {Name: "b", GameUID: "2"}, {Name: "c", GameUID: "3"}, {Name: "d", GameUID: "4"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.matches.Join(ctx, uid, squad.ID, tt.team)
			require.ErrorIs(t, err, ErrInvalidTeamData)
		})
	}
	assert.Empty(t, a.match(t, squad.ID).Participants)

	_, err := a.matches.Join(ctx, uid, "match-missing", team(1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestJoin_MatchFull(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	m := a.addMatch(t, model.ClashSquad, model.FourVFour, 5)
	require.Equal(t, 2, m.TotalSlots)

	for _, name := range []string{"a", "b"} {
		uid := a.addUser(t, name, 10)
		_, err := a.matches.Join(ctx, uid, m.ID, team(4))
		require.NoError(t, err)
	}

	late := a.addUser(t, "late", 10)
	_, err := a.matches.Join(ctx, late, m.ID, team(4))
	require.ErrorIs(t, err, ErrMatchFull)
	assert.True(t, a.user(t, late).Balance.Equal(dec(10)))
	assert.Len(t, a.match(t, m.ID).Participants, 2)
}

// Join and leave follow the stored status: a match past its start time
// still takes players until results are posted.
func TestJoinLeave_OnlyWhileUpcoming(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 50)
	other := a.addUser(t, "other", 50)
	late := a.addUser(t, "late", 50)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 10)

	_, err := a.matches.Join(ctx, uid, m.ID, team(1))
	require.NoError(t, err)

	a.clock.Advance(90 * time.Minute)
	live := a.match(t, m.ID)
	assert.Equal(t, model.StatusUpcoming, live.Status)
	assert.Equal(t, model.StatusLive, live.EffectiveStatus(a.clock.Now()))

	open, err := a.matches.Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = a.matches.Join(ctx, other, m.ID, team(1))
	require.NoError(t, err)
	require.NoError(t, a.matches.Leave(ctx, other, m.ID))
	assert.True(t, a.user(t, other).Balance.Equal(dec(50)))

	require.NoError(t, a.matches.PostResults(ctx, testAdminID, m.ID, Results{WinnerID: uid}))
	_, err = a.matches.Join(ctx, late, m.ID, team(1))
	require.ErrorIs(t, err, ErrMatchNotOpen)
	require.ErrorIs(t, a.matches.Leave(ctx, uid, m.ID), ErrMatchNotOpen)
	assert.True(t, a.user(t, uid).Balance.Equal(dec(40)))
	assert.True(t, a.user(t, late).Balance.Equal(dec(50)))

	open, err = a.matches.Open(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestLeave_RefundsEntryFee(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 50)
	first := a.addUser(t, "first", 50)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 15)

	_, err := a.matches.Join(ctx, first, m.ID, team(1))
	require.NoError(t, err)
	_, err = a.matches.Join(ctx, uid, m.ID, team(1))
	require.NoError(t, err)

	require.NoError(t, a.matches.Leave(ctx, first, m.ID))

	got := a.match(t, m.ID)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, uid, got.Participants[0].UserID)
	assert.Equal(t, 1, got.SlotNumber(uid))
	assert.True(t, a.user(t, first).Balance.Equal(dec(50)))
	assert.Empty(t, a.user(t, first).JoinedMatchIDs)

	txs, err := a.accounts.Transactions(ctx, first)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TxDeposit, txs[1].Kind)
	assert.True(t, txs[1].Refund)

	require.ErrorIs(t, a.matches.Leave(ctx, first, m.ID), ErrNotParticipant)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 0)
	future := a.clock.Now().Add(time.Hour)

	_, err := a.matches.Create(ctx, testAdminID, MatchSpec{Title: "x", GameMode: model.ClashSquad, SubMode: model.Solo, ScheduledAt: future})
	require.ErrorIs(t, err, ErrInvalidMode)

	_, err = a.matches.Create(ctx, testAdminID, MatchSpec{Title: " ", GameMode: model.LoneWolf, SubMode: model.OneVOne, ScheduledAt: future})
	require.ErrorIs(t, err, ErrInvalidMatch)

	_, err = a.matches.Create(ctx, testAdminID, MatchSpec{Title: "x", GameMode: model.LoneWolf, SubMode: model.OneVOne, ScheduledAt: future, EntryFee: dec(-1)})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = a.matches.Create(ctx, testAdminID, MatchSpec{Title: "x", GameMode: model.LoneWolf, SubMode: model.OneVOne, ScheduledAt: a.clock.Now().Add(-time.Minute)})
	require.ErrorIs(t, err, ErrInvalidMatch)

	_, err = a.matches.Create(ctx, uid, MatchSpec{Title: "x", GameMode: model.LoneWolf, SubMode: model.OneVOne, ScheduledAt: future})
	require.ErrorIs(t, err, ErrForbidden)

	m, err := a.matches.Create(ctx, testAdminID, MatchSpec{Title: "x", GameMode: model.LoneWolf, SubMode: model.TwoVTwo, ScheduledAt: future})
	require.NoError(t, err)
	assert.Equal(t, model.PerspectiveTPP, m.Perspective)
	assert.Equal(t, model.StatusUpcoming, m.Status)
	assert.Equal(t, testAdminID, m.CreatedBy)

	hosted, err := a.matches.Hosted(ctx, testAdminID)
	require.NoError(t, err)
	require.Len(t, hosted.Upcoming, 1)
	assert.Equal(t, m.ID, hosted.Upcoming[0].ID)
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 10)
	spec := MatchSpec{
		Title: "Renamed", GameMode: model.BattleRoyale, SubMode: model.Squad,
		EntryFee: dec(10), PrizePool: dec(500), ScheduledAt: m.ScheduledAt, Perspective: model.PerspectiveFPP,
	}

	edited, err := a.matches.Edit(ctx, testAdminID, m.ID, spec)
	require.NoError(t, err)
	assert.Equal(t, 12, edited.TotalSlots)
	assert.Equal(t, "Renamed", edited.Title)

	other, err := a.directory.AddAdmin(ctx, testOwnerID, "other-admin", "pw")
	require.NoError(t, err)
	_, err = a.matches.Edit(ctx, other.ID, m.ID, spec)
	require.ErrorIs(t, err, ErrForbidden)

	uid := a.addUser(t, "player", 50)
	_, err = a.matches.Join(ctx, uid, m.ID, team(4))
	require.NoError(t, err)

	changedFormat := spec
	changedFormat.SubMode = model.Duo
	_, err = a.matches.Edit(ctx, testAdminID, m.ID, changedFormat)
	require.ErrorIs(t, err, ErrRosterLocked)

	changedFee := spec
	changedFee.EntryFee = dec(1)
	_, err = a.matches.Edit(ctx, testAdminID, m.ID, changedFee)
	require.ErrorIs(t, err, ErrRosterLocked)

	spec.Rules = "No emulators"
	_, err = a.matches.Edit(ctx, testAdminID, m.ID, spec)
	require.NoError(t, err)

	require.NoError(t, a.matches.PostResults(ctx, testAdminID, m.ID, Results{WinnerID: uid}))
	_, err = a.matches.Edit(ctx, testAdminID, m.ID, spec)
	require.ErrorIs(t, err, ErrResultsPosted)
}

func TestEdit_Reschedule(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 0)
	spec := MatchSpec{
		Title: m.Title, GameMode: m.GameMode, SubMode: m.SubMode,
		EntryFee: m.EntryFee, PrizePool: m.PrizePool, ScheduledAt: m.ScheduledAt,
	}

	past := spec
	past.ScheduledAt = a.clock.Now().Add(-time.Hour)
	_, err := a.matches.Edit(ctx, testAdminID, m.ID, past)
	require.ErrorIs(t, err, ErrInvalidMatch)

	later := spec
	later.ScheduledAt = m.ScheduledAt.Add(time.Hour)
	edited, err := a.matches.Edit(ctx, testAdminID, m.ID, later)
	require.NoError(t, err)
	assert.Equal(t, later.ScheduledAt, edited.ScheduledAt)

	a.clock.Advance(3 * time.Hour)
	require.Equal(t, model.StatusLive, a.match(t, m.ID).EffectiveStatus(a.clock.Now()))

	postponed := later
	postponed.ScheduledAt = a.clock.Now().Add(time.Hour)
	_, err = a.matches.Edit(ctx, testAdminID, m.ID, postponed)
	require.ErrorIs(t, err, ErrRosterLocked)
	assert.Equal(t, model.StatusLive, a.match(t, m.ID).EffectiveStatus(a.clock.Now()), "a live match never goes back to upcoming")

	// Other fields stay editable while live.
	renamed := later
	renamed.Title = "Finals"
	edited, err = a.matches.Edit(ctx, testAdminID, m.ID, renamed)
	require.NoError(t, err)
	assert.Equal(t, "Finals", edited.Title)
}

func TestPostResults(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 0)
	p1 := a.addUser(t, "p1", 0)
	p2 := a.addUser(t, "p2", 0)
	for _, uid := range []string{p1, p2} {
		_, err := a.matches.Join(ctx, uid, m.ID, team(1))
		require.NoError(t, err)
	}

	res := Results{
		WinnerID:    p2,
		Performance: map[string]model.Performance{p1: {Rank: 2, Kills: 3}, p2: {Rank: 1, Kills: 7}},
	}

	outsider := a.addUser(t, "outsider", 0)
	require.ErrorIs(t, a.matches.PostResults(ctx, outsider, m.ID, res), ErrForbidden)
	require.ErrorIs(t, a.matches.PostResults(ctx, testAdminID, m.ID, Results{WinnerID: outsider}), ErrNotFound)
	require.ErrorIs(t, a.matches.PostResults(ctx, testAdminID, m.ID, Results{
		WinnerID: p1, Performance: map[string]model.Performance{outsider: {Rank: 1}},
	}), ErrNotFound)

	require.NoError(t, a.matches.PostResults(ctx, testAdminID, m.ID, res))

	got := a.match(t, m.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, p2, got.WinnerID)
	require.NotNil(t, got.CompletedAt)
	for _, p := range got.Participants {
		require.NotNil(t, p.Performance)
		assert.Equal(t, res.Performance[p.UserID], *p.Performance)
	}

	require.ErrorIs(t, a.matches.PostResults(ctx, testAdminID, m.ID, res), ErrResultsPosted)

	a.clock.Advance(3 * time.Hour)
	assert.Equal(t, model.StatusCompleted, a.match(t, m.ID).EffectiveStatus(a.clock.Now()))
}

func TestPostResults_MissingPerformanceDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	m := a.addMatch(t, model.LoneWolf, model.OneVOne, 0)
	p1 := a.addUser(t, "p1", 0)
	p2 := a.addUser(t, "p2", 0)
	for _, uid := range []string{p1, p2} {
		_, err := a.matches.Join(ctx, uid, m.ID, team(1))
		require.NoError(t, err)
	}

	// The owner manages every match.
	require.NoError(t, a.matches.PostResults(ctx, testOwnerID, m.ID, Results{
		WinnerID: p1, Performance: map[string]model.Performance{p1: {Rank: 1, Kills: 4}},
	}))

	got := a.match(t, m.ID)
	assert.Equal(t, model.Performance{}, *got.Participants[1].Performance)
}

func TestRoomVisibility(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	m := a.addMatch(t, model.BattleRoyale, model.Solo, 0)
	uid := a.addUser(t, "player", 0)
	outsider := a.addUser(t, "outsider", 0)
	_, err := a.matches.Join(ctx, uid, m.ID, team(1))
	require.NoError(t, err)

	require.ErrorIs(t, a.matches.SetRoom(ctx, uid, m.ID, model.RoomDetails{ID: "1", Password: "2"}), ErrForbidden)
	require.NoError(t, a.matches.SetRoom(ctx, testAdminID, m.ID, model.RoomDetails{ID: "123456", Password: "pass"}))

	access, err := a.matches.RoomFor(ctx, uid, m.ID)
	require.NoError(t, err)
	assert.True(t, access.Set)
	assert.Nil(t, access.Room, "room is hidden an hour before start")
	assert.Equal(t, m.ScheduledAt.Add(-roomWindow), access.VisibleAt)

	a.clock.Advance(45 * time.Minute)
	access, err = a.matches.RoomFor(ctx, uid, m.ID)
	require.NoError(t, err)
	assert.Nil(t, access.Room, "room is still hidden exactly at the window edge")

	a.clock.Advance(time.Second)
	access, err = a.matches.RoomFor(ctx, uid, m.ID)
	require.NoError(t, err)
	require.NotNil(t, access.Room)
	assert.Equal(t, "123456", access.Room.ID)

	_, err = a.matches.RoomFor(ctx, outsider, m.ID)
	require.ErrorIs(t, err, ErrNotParticipant)

	public, err := a.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, public.Room)

	// A half-filled secret clears the room.
	require.NoError(t, a.matches.SetRoom(ctx, testAdminID, m.ID, model.RoomDetails{ID: "123456"}))
	access, err = a.matches.RoomFor(ctx, uid, m.ID)
	require.NoError(t, err)
	assert.False(t, access.Set)

	require.NoError(t, a.matches.PostResults(ctx, testAdminID, m.ID, Results{WinnerID: uid}))
	require.ErrorIs(t, a.matches.SetRoom(ctx, testAdminID, m.ID, model.RoomDetails{ID: "1", Password: "2"}), ErrResultsPosted)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	a := newArena(t)
	uid := a.addUser(t, "player", 100)

	soon := a.addMatch(t, model.BattleRoyale, model.Solo, 0)
	a.clock.Advance(-30 * time.Minute)
	sooner := a.addMatch(t, model.BattleRoyale, model.Solo, 0)
	a.clock.Advance(30 * time.Minute)

	open, err := a.matches.Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, sooner.ID, open[0].ID)
	assert.Equal(t, soon.ID, open[1].ID)

	for _, m := range []string{sooner.ID, soon.ID} {
		_, err := a.matches.Join(ctx, uid, m, team(1))
		require.NoError(t, err)
	}
	joined, err := a.matches.Joined(ctx, uid)
	require.NoError(t, err)
	require.Len(t, joined, 2)
	assert.Equal(t, soon.ID, joined[0].ID, "newest first")

	a.clock.Advance(45 * time.Minute)
	hosted, err := a.matches.Hosted(ctx, testAdminID)
	require.NoError(t, err)
	assert.Len(t, hosted.Ongoing, 1)
	assert.Len(t, hosted.Upcoming, 1)
	assert.Empty(t, hosted.Finished)

	open, err = a.matches.Open(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2, "a live match stays open until results are posted")

	_, err = a.matches.Hosted(ctx, uid)
	require.ErrorIs(t, err, ErrForbidden)
}
