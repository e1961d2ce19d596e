package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arena-bot/internal/game"
	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// MatchSpec carries the operator-editable fields of a match.
type MatchSpec struct {
	Title       string `validate:"notblank"`
	GameMode    model.GameMode
	SubMode     model.SubMode
	EntryFee    decimal.Decimal
	PrizePool   decimal.Decimal
	ScheduledAt time.Time
	Map         string
	Perspective model.Perspective
	Rules       string
}

// Results is the outcome an operator posts for a match. Performance is keyed by
// user id; participants missing from it are recorded with a zero performance.
type Results struct {
	WinnerID    string
	Performance map[string]model.Performance
}

// RoomAccess is what a participant may see of the room secret.
type RoomAccess struct {
	Room      *model.RoomDetails // nil until set and inside the visibility window
	Set       bool
	VisibleAt time.Time
}

// HostedMatches buckets an admin's own matches.
type HostedMatches struct {
	Upcoming []*model.Match
	Ongoing  []*model.Match
	Finished []*model.Match
}

// MatchService handles match lifecycle and rosters.
type MatchService struct {
	store      *store.Store
	formats    *game.Registry
	validate   *validator.Validate
	roomWindow time.Duration
	now        func() time.Time
}

// NewMatchService creates a new MatchService instance. roomWindow is how long
// before the start participants can see room details.
func NewMatchService(st *store.Store, formats *game.Registry, roomWindow time.Duration) *MatchService {
	if formats == nil {
		formats = game.DefaultRegistry
	}
	return &MatchService{
		store:      st,
		formats:    formats,
		validate:   newValidator(),
		roomWindow: roomWindow,
		now:        time.Now,
	}
}

func (s *MatchService) checkSpec(spec *MatchSpec) (int, error) {
	if err := s.validate.Struct(spec); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidMatch, err)
	}
	if spec.ScheduledAt.IsZero() {
		return 0, fmt.Errorf("%w: scheduled time is required", ErrInvalidMatch)
	}
	if spec.EntryFee.IsNegative() || spec.PrizePool.IsNegative() {
		return 0, ErrInvalidAmount
	}
	switch spec.Perspective {
	case "":
		spec.Perspective = model.PerspectiveTPP
	case model.PerspectiveTPP, model.PerspectiveFPP:
	default:
		return 0, fmt.Errorf("%w: unknown perspective %q", ErrInvalidMatch, spec.Perspective)
	}
	slots := s.formats.AutoSlots(spec.GameMode, spec.SubMode)
	if slots == 0 {
		return 0, ErrInvalidMode
	}
	return slots, nil
}

// Create schedules a new match owned by the calling admin.
func (s *MatchService) Create(ctx context.Context, actorID string, spec MatchSpec) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slots, err := s.checkSpec(&spec)
	if err != nil {
		return nil, err
	}

	var created *model.Match
	err = s.store.Update(func(st *store.State) error {
		admin, err := requireAdmin(st, actorID)
		if err != nil {
			return err
		}
		now := s.now()
		if !spec.ScheduledAt.After(now) {
			return fmt.Errorf("%w: start time must be in the future", ErrInvalidMatch)
		}

		m := &model.Match{
			ID:          newID("match"),
			Title:       spec.Title,
			GameMode:    spec.GameMode,
			SubMode:     spec.SubMode,
			EntryFee:    spec.EntryFee,
			PrizePool:   spec.PrizePool,
			TotalSlots:  slots,
			ScheduledAt: spec.ScheduledAt,
			Map:         spec.Map,
			Perspective: spec.Perspective,
			Rules:       spec.Rules,
			Status:      model.StatusUpcoming,
			CreatedBy:   admin.ID,
			CreatedAt:   now,
		}
		st.PutMatch(m)
		admin.CreatedMatchIDs = append(admin.CreatedMatchIDs, m.ID)
		created = m.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("actor_id", actorID).
		Str("match_id", created.ID).
		Str("mode", string(created.GameMode)).
		Str("sub_mode", string(created.SubMode)).
		Int("slots", created.TotalSlots).
		Msg("Match created")
	return created, nil
}

// Edit replaces the editable fields of a match. Only its creator may edit it,
// and only while no results are attached. With participants on the roster the
// format and entry fee are frozen. A new start time must lie in the future,
// and a live match keeps its start time.
func (s *MatchService) Edit(ctx context.Context, actorID, matchID string, spec MatchSpec) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slots, err := s.checkSpec(&spec)
	if err != nil {
		return nil, err
	}

	var edited *model.Match
	err = s.store.Update(func(st *store.State) error {
		admin, err := requireAdmin(st, actorID)
		if err != nil {
			return err
		}
		m, ok := st.Match(matchID)
		if !ok {
			return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
		}
		if m.CreatedBy != admin.ID {
			return ErrForbidden
		}
		if m.Status == model.StatusCompleted || m.HasPerformance() {
			return ErrResultsPosted
		}
		if now := s.now(); !spec.ScheduledAt.Equal(m.ScheduledAt) {
			if m.EffectiveStatus(now) == model.StatusLive {
				return fmt.Errorf("%w: a live match cannot be rescheduled", ErrRosterLocked)
			}
			if !spec.ScheduledAt.After(now) {
				return fmt.Errorf("%w: start time must be in the future", ErrInvalidMatch)
			}
		}
		if len(m.Participants) > 0 {
			if spec.GameMode != m.GameMode || spec.SubMode != m.SubMode {
				return fmt.Errorf("%w: format is fixed once players have joined", ErrRosterLocked)
			}
			if !spec.EntryFee.Equal(m.EntryFee) {
				return fmt.Errorf("%w: entry fee is fixed once players have joined", ErrRosterLocked)
			}
		}
		if slots < len(m.Participants) {
			return fmt.Errorf("%w: %d slots cannot hold %d participants", ErrRosterLocked, slots, len(m.Participants))
		}

		m.Title = spec.Title
		m.GameMode = spec.GameMode
		m.SubMode = spec.SubMode
		m.EntryFee = spec.EntryFee
		m.PrizePool = spec.PrizePool
		m.TotalSlots = slots
		m.ScheduledAt = spec.ScheduledAt
		m.Map = spec.Map
		m.Perspective = spec.Perspective
		m.Rules = spec.Rules
		edited = m.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("actor_id", actorID).Str("match_id", matchID).Msg("Match edited")
	return edited, nil
}

func (s *MatchService) validTeam(sub model.SubMode, team []model.PlayerDetails) bool {
	size := game.TeamSize(sub)
	if size == 0 || len(team) != size {
		return false
	}
	for i := range team {
		if err := s.validate.Struct(team[i]); err != nil {
			return false
		}
	}
	return true
}

// Join adds the user's team to the roster and charges the entry fee.
// It returns the slot number taken.
func (s *MatchService) Join(ctx context.Context, userID, matchID string, team []model.PlayerDetails) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var slot int
	err := s.store.Update(func(st *store.State) error {
		u, err := requireUser(st, userID)
		if err != nil {
			return err
		}
		m, ok := st.Match(matchID)
		if !ok {
			return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
		}
		if m.Status != model.StatusUpcoming {
			return ErrMatchNotOpen
		}
		now := s.now()
		if m.ParticipantIndex(u.ID) >= 0 || u.HasJoined(m.ID) {
			return ErrAlreadyJoined
		}
		if m.IsFull() {
			return ErrMatchFull
		}
		if !s.validTeam(m.SubMode, team) {
			return ErrInvalidTeamData
		}
		if m.EntryFee.IsPositive() {
			if _, err := debit(st, u, m.EntryFee, entry{kind: model.TxEntryFee, matchID: m.ID}, now); err != nil {
				return err
			}
		}

		m.Participants = append(m.Participants, model.Participant{
			UserID:   u.ID,
			Team:     append([]model.PlayerDetails(nil), team...),
			JoinedAt: now,
		})
		u.JoinedMatchIDs = append(u.JoinedMatchIDs, m.ID)
		slot = len(m.Participants)
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Str("match_id", matchID).Msg("Join rejected")
		return 0, err
	}

	log.Info().Str("operation", "join").Str("user_id", userID).Str("match_id", matchID).Int("slot", slot).Msg("Match joined")
	return slot, nil
}

// Leave removes the user from the roster and refunds the entry fee.
func (s *MatchService) Leave(ctx context.Context, userID, matchID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.store.Update(func(st *store.State) error {
		u, err := requireUser(st, userID)
		if err != nil {
			return err
		}
		m, ok := st.Match(matchID)
		if !ok {
			return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
		}
		if m.Status != model.StatusUpcoming {
			return ErrMatchNotOpen
		}
		now := s.now()
		idx := m.ParticipantIndex(u.ID)
		if idx < 0 {
			return ErrNotParticipant
		}
		if m.EntryFee.IsPositive() {
			refund := entry{kind: model.TxDeposit, refund: true, matchID: m.ID}
			if _, err := credit(st, u, m.EntryFee, refund, now); err != nil {
				return err
			}
		}

		m.Participants = append(m.Participants[:idx], m.Participants[idx+1:]...)
		joined := u.JoinedMatchIDs[:0]
		for _, id := range u.JoinedMatchIDs {
			if id != m.ID {
				joined = append(joined, id)
			}
		}
		u.JoinedMatchIDs = joined
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Str("match_id", matchID).Msg("Leave rejected")
		return err
	}

	log.Info().Str("operation", "leave").Str("user_id", userID).Str("match_id", matchID).Msg("Match left")
	return nil
}

// SetRoom stores the room secret. A blank id or password clears it instead.
func (s *MatchService) SetRoom(ctx context.Context, actorID, matchID string, room model.RoomDetails) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.store.Update(func(st *store.State) error {
		m, ok := st.Match(matchID)
		if !ok {
			return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
		}
		if _, err := requireManager(st, actorID, m); err != nil {
			return err
		}
		if m.Status == model.StatusCompleted {
			return ErrResultsPosted
		}
		if isBlank(room.ID) || isBlank(room.Password) {
			m.Room = nil
			return nil
		}
		m.Room = &model.RoomDetails{ID: room.ID, Password: room.Password}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("actor_id", actorID).Str("match_id", matchID).Msg("Room details updated")
	return nil
}

// ClearRoom removes the room secret.
func (s *MatchService) ClearRoom(ctx context.Context, actorID, matchID string) error {
	return s.SetRoom(ctx, actorID, matchID, model.RoomDetails{})
}

// RoomFor returns the room secret as the participant may see it: only once the
// match is within the room window of its start.
func (s *MatchService) RoomFor(ctx context.Context, userID, matchID string) (RoomAccess, error) {
	if err := ctx.Err(); err != nil {
		return RoomAccess{}, err
	}

	var (
		access RoomAccess
		err    error
	)
	s.store.View(func(st *store.State) {
		m, ok := st.Match(matchID)
		if !ok {
			err = fmt.Errorf("match %s: %w", matchID, ErrNotFound)
			return
		}
		if m.ParticipantIndex(userID) < 0 {
			err = ErrNotParticipant
			return
		}
		access.Set = m.Room != nil
		access.VisibleAt = m.ScheduledAt.Add(-s.roomWindow)
		if access.Set && s.now().After(access.VisibleAt) {
			room := *m.Room
			access.Room = &room
		}
	})
	return access, err
}

// PostResults completes the match, records the winner and attaches performance
// to every participant. It can only happen once.
func (s *MatchService) PostResults(ctx context.Context, actorID, matchID string, res Results) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.store.Update(func(st *store.State) error {
		m, ok := st.Match(matchID)
		if !ok {
			return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
		}
		if _, err := requireManager(st, actorID, m); err != nil {
			return err
		}
		if m.Status == model.StatusCompleted {
			return ErrResultsPosted
		}
		if m.ParticipantIndex(res.WinnerID) < 0 {
			return fmt.Errorf("winner %s is not a participant: %w", res.WinnerID, ErrNotFound)
		}
		for userID, perf := range res.Performance {
			if m.ParticipantIndex(userID) < 0 {
				return fmt.Errorf("participant %s: %w", userID, ErrNotFound)
			}
			if perf.Rank < 0 || perf.Kills < 0 {
				return ErrInvalidResults
			}
		}

		for i := range m.Participants {
			perf := res.Performance[m.Participants[i].UserID]
			m.Participants[i].Performance = &perf
		}
		now := s.now()
		m.Status = model.StatusCompleted
		m.WinnerID = res.WinnerID
		m.CompletedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("actor_id", actorID).
		Str("match_id", matchID).
		Str("winner_id", res.WinnerID).
		Msg("Match results posted")
	return nil
}

// publicCopy clones m without its room secret.
func publicCopy(m *model.Match) *model.Match {
	c := m.Clone()
	c.Room = nil
	return c
}

// Get returns a match without its room secret.
func (s *MatchService) Get(ctx context.Context, matchID string) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m *model.Match
	s.store.View(func(st *store.State) {
		if found, ok := st.Match(matchID); ok {
			m = publicCopy(found)
		}
	})
	if m == nil {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	return m, nil
}

// Open returns the matches that can still be joined, soonest first. A match
// past its start time stays open until results are posted.
func (s *MatchService) Open(ctx context.Context) ([]*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var open []*model.Match
	s.store.View(func(st *store.State) {
		for _, m := range st.Matches() {
			if m.Status == model.StatusUpcoming {
				open = append(open, publicCopy(m))
			}
		}
	})
	sort.SliceStable(open, func(i, j int) bool {
		return open[i].ScheduledAt.Before(open[j].ScheduledAt)
	})
	return open, nil
}

// Joined returns the matches the user is on, newest first.
func (s *MatchService) Joined(ctx context.Context, userID string) ([]*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		joined []*model.Match
		found  bool
	)
	s.store.View(func(st *store.State) {
		u, ok := st.User(userID)
		if !ok {
			return
		}
		found = true
		for _, id := range u.JoinedMatchIDs {
			if m, ok := st.Match(id); ok {
				joined = append(joined, publicCopy(m))
			}
		}
	})
	if !found {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].ScheduledAt.After(joined[j].ScheduledAt)
	})
	return joined, nil
}

// Hosted buckets the admin's own matches by derived status. Room secrets are included.
func (s *MatchService) Hosted(ctx context.Context, adminID string) (HostedMatches, error) {
	if err := ctx.Err(); err != nil {
		return HostedMatches{}, err
	}

	now := s.now()
	var (
		hosted HostedMatches
		err    error
	)
	s.store.View(func(st *store.State) {
		var admin *model.Admin
		if admin, err = requireAdmin(st, adminID); err != nil {
			return
		}
		for _, id := range admin.CreatedMatchIDs {
			m, ok := st.Match(id)
			if !ok {
				continue
			}
			switch m.EffectiveStatus(now) {
			case model.StatusUpcoming:
				hosted.Upcoming = append(hosted.Upcoming, m.Clone())
			case model.StatusLive:
				hosted.Ongoing = append(hosted.Ongoing, m.Clone())
			case model.StatusCompleted:
				hosted.Finished = append(hosted.Finished, m.Clone())
			}
		}
	})
	if err != nil {
		return HostedMatches{}, err
	}

	sort.SliceStable(hosted.Upcoming, func(i, j int) bool {
		return hosted.Upcoming[i].ScheduledAt.Before(hosted.Upcoming[j].ScheduledAt)
	})
	sort.SliceStable(hosted.Ongoing, func(i, j int) bool {
		return hosted.Ongoing[i].ScheduledAt.Before(hosted.Ongoing[j].ScheduledAt)
	})
	sort.SliceStable(hosted.Finished, func(i, j int) bool {
		return hosted.Finished[i].ScheduledAt.After(hosted.Finished[j].ScheduledAt)
	})
	return hosted, nil
}
