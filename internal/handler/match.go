package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/game"
	"arena-bot/internal/model"
	"arena-bot/internal/pkg/lock"
	"arena-bot/internal/service"
)

// MatchHandler handles player-facing match commands.
type MatchHandler struct {
	matches  *service.MatchService
	strategy *service.StrategyService
	inFlight *lock.InFlight
	format   Formatter
	now      func() time.Time
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(
	matches *service.MatchService,
	strategy *service.StrategyService,
	inFlight *lock.InFlight,
	format Formatter,
) *MatchHandler {
	return &MatchHandler{
		matches:  matches,
		strategy: strategy,
		inFlight: inFlight,
		format:   format,
		now:      time.Now,
	}
}

// parseTeam parses "name:uid, name:uid" into player details. Shape errors are
// left for the match service to judge.
func parseTeam(s string) []model.PlayerDetails {
	var team []model.PlayerDetails
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, uid, _ := strings.Cut(part, ":")
		team = append(team, model.PlayerDetails{Name: strings.TrimSpace(name), GameUID: strings.TrimSpace(uid)})
	}
	return team
}

// HandleMatches handles the /matches command.
func (h *MatchHandler) HandleMatches(c tele.Context) error {
	matches, err := h.matches.Open(context.Background())
	if err != nil {
		return replyError(c, err)
	}
	if len(matches) == 0 {
		return c.Reply("📭 No open matches right now")
	}

	now := h.now()
	var b strings.Builder
	b.WriteString("📋 Open matches\n")
	for _, m := range matches {
		b.WriteString("\n" + h.format.matchLine(m, now))
	}
	b.WriteString("\n\nJoin with /join <match_id> <name>:<uid>[, <name>:<uid>...]")
	return c.Reply(b.String())
}

// HandleFormats handles the /formats command.
func (h *MatchHandler) HandleFormats(c tele.Context) error {
	var b strings.Builder
	b.WriteString("🎮 Match formats")
	seen := make(map[model.GameMode]bool)
	for _, f := range game.Formats() {
		if seen[f.Mode] {
			continue
		}
		seen[f.Mode] = true
		b.WriteString("\n\n" + string(f.Mode))
		for _, sub := range game.SubModes(f.Mode) {
			fmt.Fprintf(&b, "\n  • %s: %d slots, %d per team", sub, game.AutoSlots(f.Mode, sub), game.TeamSize(sub))
		}
	}
	return c.Reply(b.String())
}

// HandleMyMatches handles the /mymatches command.
func (h *MatchHandler) HandleMyMatches(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	matches, err := h.matches.Joined(context.Background(), p.ID)
	if err != nil {
		return replyError(c, err)
	}
	if len(matches) == 0 {
		return c.Reply("📭 You have not joined any matches")
	}

	now := h.now()
	var b strings.Builder
	b.WriteString("🎟 Your matches\n")
	for _, m := range matches {
		b.WriteString("\n" + h.format.matchLine(m, now))
		fmt.Fprintf(&b, "\n   Your slot: #%d", m.SlotNumber(p.ID))
	}
	return c.Reply(b.String())
}

// HandleMatch handles the /match command.
// Format: /match <match_id>
func (h *MatchHandler) HandleMatch(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/match <match_id>")
	}
	m, err := h.matches.Get(context.Background(), args[0])
	if err != nil {
		return replyError(c, err)
	}

	var b strings.Builder
	b.WriteString(h.format.matchLine(m, h.now()))
	if m.Map != "" {
		fmt.Fprintf(&b, "\n🗺 Map: %s", m.Map)
	}
	if m.Rules != "" {
		fmt.Fprintf(&b, "\n📜 Rules: %s", m.Rules)
	}
	if p, ok := Principal(c); ok {
		if slot := m.SlotNumber(p.ID); slot > 0 {
			fmt.Fprintf(&b, "\n🎟 You are in slot #%d", slot)
		}
	}
	if m.Status == model.StatusCompleted {
		fmt.Fprintf(&b, "\n🏆 Winner: %s", m.WinnerID)
	}
	return c.Reply(b.String())
}

// HandleJoin handles the /join command.
// Format: /join <match_id> <name>:<uid>[, <name>:<uid>...]
func (h *MatchHandler) HandleJoin(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	matchID, rest, _ := strings.Cut(strings.TrimSpace(c.Message().Payload), " ")
	if matchID == "" {
		return usage(c, "/join <match_id> <name>:<uid>[, <name>:<uid>...]")
	}

	slot, err := h.matches.Join(context.Background(), p.ID, matchID, parseTeam(rest))
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Joined match %s\n🎟 Your slot: #%d", matchID, slot))
}

// HandleLeave handles the /leave command.
// Format: /leave <match_id>
func (h *MatchHandler) HandleLeave(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/leave <match_id>")
	}
	if err := h.matches.Leave(context.Background(), p.ID, args[0]); err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Left match %s. Any entry fee has been refunded.", args[0]))
}

// HandleRoom handles the /room command.
// Format: /room <match_id>
func (h *MatchHandler) HandleRoom(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/room <match_id>")
	}
	access, err := h.matches.RoomFor(context.Background(), p.ID, args[0])
	if err != nil {
		return replyError(c, err)
	}
	switch {
	case access.Room != nil:
		return c.Reply(fmt.Sprintf("🔑 Room ID: %s\n🔒 Password: %s", access.Room.ID, access.Room.Password))
	case access.Set:
		return c.Reply(fmt.Sprintf("⏳ Room details unlock at %s", h.format.when(access.VisibleAt)))
	default:
		return c.Reply("⏳ Room details have not been published yet")
	}
}

// HandleStrategy handles the /strategy command. A chat user may have one
// request in flight at a time.
// Format: /strategy <match_id>
func (h *MatchHandler) HandleStrategy(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/strategy <match_id>")
	}

	var text string
	err := h.inFlight.Do(sender.ID, func() error {
		var err error
		text, err = h.strategy.Strategy(context.Background(), args[0])
		return err
	})
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply("🧠 " + text)
}
