package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/game"
	"arena-bot/internal/model"
	"arena-bot/internal/service"
)

const matchSpecUsage = "<title> | <mode> | <sub-mode> | <entry fee> | <prize pool> | <YYYY-MM-DD HH:MM> | [map] | [TPP|FPP] | [rules]"

// AdminHandler handles match operator and withdrawal review commands.
type AdminHandler struct {
	matches     *service.MatchService
	withdrawals *service.WithdrawalService
	directory   *service.DirectoryService
	format      Formatter
	now         func() time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	matches *service.MatchService,
	withdrawals *service.WithdrawalService,
	directory *service.DirectoryService,
	format Formatter,
) *AdminHandler {
	return &AdminHandler{
		matches:     matches,
		withdrawals: withdrawals,
		directory:   directory,
		format:      format,
		now:         time.Now,
	}
}

// parseMatchSpec parses the "|" separated match fields. Fees may be zero.
func (h *AdminHandler) parseMatchSpec(fields []string) (service.MatchSpec, error) {
	var spec service.MatchSpec
	if len(fields) < 6 || len(fields) > 9 {
		return spec, service.ErrInvalidMatch
	}
	spec.Title = fields[0]

	mode, ok := game.ParseMode(fields[1])
	if !ok {
		return spec, fmt.Errorf("mode %q: %w", fields[1], service.ErrInvalidMode)
	}
	sub, ok := game.ParseSubMode(fields[2])
	if !ok {
		return spec, fmt.Errorf("sub-mode %q: %w", fields[2], service.ErrInvalidMode)
	}
	spec.GameMode, spec.SubMode = mode, sub

	var err error
	if spec.EntryFee, err = decimal.NewFromString(fields[3]); err != nil {
		return spec, fmt.Errorf("entry fee %q: %w", fields[3], service.ErrInvalidMatch)
	}
	if spec.PrizePool, err = decimal.NewFromString(fields[4]); err != nil {
		return spec, fmt.Errorf("prize pool %q: %w", fields[4], service.ErrInvalidMatch)
	}
	if spec.ScheduledAt, err = h.format.parseTime(fields[5]); err != nil {
		return spec, err
	}
	if len(fields) > 6 {
		spec.Map = fields[6]
	}
	if len(fields) > 7 && fields[7] != "" {
		switch strings.ToUpper(fields[7]) {
		case string(model.PerspectiveTPP):
			spec.Perspective = model.PerspectiveTPP
		case string(model.PerspectiveFPP):
			spec.Perspective = model.PerspectiveFPP
		default:
			return spec, fmt.Errorf("perspective %q: %w", fields[7], service.ErrInvalidMatch)
		}
	}
	if len(fields) > 8 {
		spec.Rules = fields[8]
	}
	return spec, nil
}

// HandleCreateMatch handles the /create_match command.
// Format: /create_match <title> | <mode> | <sub-mode> | <fee> | <prize> | <start> | [map] | [TPP|FPP] | [rules]
func (h *AdminHandler) HandleCreateMatch(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	fields := splitFields(c.Message().Payload)
	if len(fields) < 6 {
		return usage(c, "/create_match "+matchSpecUsage)
	}
	spec, err := h.parseMatchSpec(fields)
	if err != nil {
		return replyError(c, err)
	}

	m, err := h.matches.Create(context.Background(), p.ID, spec)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply("✅ Match created\n" + h.format.matchLine(m, h.now()))
}

// HandleEditMatch handles the /edit_match command.
// Format: /edit_match <match_id> | <title> | <mode> | ... (same fields as /create_match)
func (h *AdminHandler) HandleEditMatch(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	fields := splitFields(c.Message().Payload)
	if len(fields) < 7 {
		return usage(c, "/edit_match <match_id> | "+matchSpecUsage)
	}
	spec, err := h.parseMatchSpec(fields[1:])
	if err != nil {
		return replyError(c, err)
	}

	m, err := h.matches.Edit(context.Background(), p.ID, fields[0], spec)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply("✅ Match updated\n" + h.format.matchLine(m, h.now()))
}

// HandleSetRoom handles the /set_room command.
// Format: /set_room <match_id> <room_id> <password>
func (h *AdminHandler) HandleSetRoom(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 3 {
		return usage(c, "/set_room <match_id> <room_id> <password>")
	}

	room := model.RoomDetails{ID: args[1], Password: args[2]}
	if err := h.matches.SetRoom(context.Background(), p.ID, args[0], room); err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Room details saved for %s", args[0]))
}

// HandleClearRoom handles the /clear_room command.
// Format: /clear_room <match_id>
func (h *AdminHandler) HandleClearRoom(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/clear_room <match_id>")
	}
	if err := h.matches.ClearRoom(context.Background(), p.ID, args[0]); err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Room details cleared for %s", args[0]))
}

// HandlePostResults handles the /post_results command. Participants are named
// by username; any left out are recorded with rank and kills of zero.
// Format: /post_results <match_id> <winner> [username:rank:kills ...]
func (h *AdminHandler) HandlePostResults(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 2 {
		return usage(c, "/post_results <match_id> <winner> [username:rank:kills ...]")
	}

	ctx := context.Background()
	winner, err := h.directory.UserByName(ctx, args[1])
	if err != nil {
		return replyError(c, err)
	}
	res := service.Results{WinnerID: winner.ID, Performance: make(map[string]model.Performance)}
	for _, raw := range args[2:] {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return replyError(c, fmt.Errorf("entry %q: %w", raw, service.ErrInvalidResults))
		}
		rank, rankErr := strconv.Atoi(parts[1])
		kills, killsErr := strconv.Atoi(parts[2])
		if rankErr != nil || killsErr != nil {
			return replyError(c, fmt.Errorf("entry %q: %w", raw, service.ErrInvalidResults))
		}
		u, err := h.directory.UserByName(ctx, parts[0])
		if err != nil {
			return replyError(c, err)
		}
		res.Performance[u.ID] = model.Performance{Rank: rank, Kills: kills}
	}

	if err := h.matches.PostResults(ctx, p.ID, args[0], res); err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("🏆 Results posted for %s\nWinner: %s", args[0], winner.Username))
}

// HandleMyHosted handles the /my_hosted command.
func (h *AdminHandler) HandleMyHosted(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	hosted, err := h.matches.Hosted(context.Background(), p.ID)
	if err != nil {
		return replyError(c, err)
	}

	now := h.now()
	var b strings.Builder
	section := func(title string, matches []*model.Match) {
		fmt.Fprintf(&b, "\n%s (%d)\n", title, len(matches))
		for _, m := range matches {
			b.WriteString(h.format.matchLine(m, now) + "\n")
			if m.Room != nil {
				fmt.Fprintf(&b, "   🔑 %s / %s\n", m.Room.ID, m.Room.Password)
			}
		}
	}
	b.WriteString("🗂 Your matches\n")
	section("⏳ Upcoming", hosted.Upcoming)
	section("🔴 Ongoing", hosted.Ongoing)
	section("✅ Finished", hosted.Finished)
	return c.Reply(b.String())
}

// HandleWithdrawals handles the /withdrawals command.
func (h *AdminHandler) HandleWithdrawals(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	pending, err := h.withdrawals.Pending(context.Background(), p.ID)
	if err != nil {
		return replyError(c, err)
	}
	if len(pending) == 0 {
		return c.Reply("📭 No pending withdrawals")
	}

	var b strings.Builder
	b.WriteString("💸 Pending withdrawals\n")
	for _, w := range pending {
		fmt.Fprintf(&b, "\n[%s] user %s · %s via %s · %s", w.ID, w.UserID, h.format.money(w.Amount), w.Method, h.format.when(w.CreatedAt))
		switch d := w.Details.(type) {
		case model.UPIDetails:
			fmt.Fprintf(&b, "\n   UPI: %s", d.UPIID)
		case model.BankDetails:
			fmt.Fprintf(&b, "\n   %s · %s · %s · %s", d.AccountHolder, d.AccountNumber, d.IFSC, d.BankName)
		}
	}
	b.WriteString("\n\n/approve <id> [remark] · /reject <id> <remark>")
	return c.Reply(b.String())
}

// HandleApprove handles the /approve command.
// Format: /approve <withdrawal_id> [remark]
func (h *AdminHandler) HandleApprove(c tele.Context) error {
	return h.resolve(c, true)
}

// HandleReject handles the /reject command.
// Format: /reject <withdrawal_id> <remark>
func (h *AdminHandler) HandleReject(c tele.Context) error {
	return h.resolve(c, false)
}

func (h *AdminHandler) resolve(c tele.Context, approve bool) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	id, remark, _ := strings.Cut(strings.TrimSpace(c.Message().Payload), " ")
	remark = strings.TrimSpace(remark)
	switch {
	case approve && id == "":
		return usage(c, "/approve <withdrawal_id> [remark]")
	case !approve && (id == "" || remark == ""):
		return usage(c, "/reject <withdrawal_id> <remark>")
	}

	w, err := h.withdrawals.Resolve(context.Background(), p.ID, id, approve, remark)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Withdrawal %s %s", w.ID, strings.ToLower(string(w.Status))))
}
