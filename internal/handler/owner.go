package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/service"
)

// OwnerHandler handles platform owner commands.
type OwnerHandler struct {
	directory *service.DirectoryService
	accounts  *service.AccountService
	ranking   *service.RankingService
	format    Formatter
}

// NewOwnerHandler creates a new OwnerHandler.
func NewOwnerHandler(
	directory *service.DirectoryService,
	accounts *service.AccountService,
	ranking *service.RankingService,
	format Formatter,
) *OwnerHandler {
	return &OwnerHandler{
		directory: directory,
		accounts:  accounts,
		ranking:   ranking,
		format:    format,
	}
}

// HandleCredit handles the /credit command.
// Format: /credit <username> <amount>
func (h *OwnerHandler) HandleCredit(c tele.Context) error {
	return h.adjust(c, true)
}

// HandleDebit handles the /debit command.
// Format: /debit <username> <amount>
func (h *OwnerHandler) HandleDebit(c tele.Context) error {
	return h.adjust(c, false)
}

func (h *OwnerHandler) adjust(c tele.Context, add bool) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 2 {
		if add {
			return usage(c, "/credit <username> <amount>")
		}
		return usage(c, "/debit <username> <amount>")
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return replyError(c, err)
	}

	ctx := context.Background()
	user, err := h.directory.UserByName(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}
	if _, err := h.accounts.AdjustBalance(ctx, p.ID, user.ID, amount, add); err != nil {
		return replyError(c, err)
	}
	balance, _ := h.accounts.Balance(ctx, user.ID)

	verb := "➕ Added"
	if !add {
		verb = "➖ Removed"
	}
	return c.Reply(fmt.Sprintf(
		"✅ Done\n\n"+
			"👤 User: %s\n"+
			"%s: %s\n"+
			"💰 Balance: %s",
		user.Username, verb, h.format.money(amount), h.format.money(balance),
	))
}

// HandleBan handles the /ban command. Banning an already banned user lifts the ban.
// Format: /ban <username>
func (h *OwnerHandler) HandleBan(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/ban <username>")
	}

	ctx := context.Background()
	user, err := h.directory.UserByName(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}
	banned, err := h.directory.ToggleBan(ctx, p.ID, user.ID)
	if err != nil {
		return replyError(c, err)
	}
	if banned {
		return c.Reply(fmt.Sprintf("🚫 %s is now banned", user.Username))
	}
	return c.Reply(fmt.Sprintf("✅ %s is no longer banned", user.Username))
}

// HandleAddAdmin handles the /add_admin command.
// Format: /add_admin <username> <password>
func (h *OwnerHandler) HandleAddAdmin(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 2 {
		return usage(c, "/add_admin <username> <password>")
	}
	admin, err := h.directory.AddAdmin(context.Background(), p.ID, args[0], args[1])
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Admin %s added (%s)", admin.Username, admin.ID))
}

// HandleRemoveAdmin handles the /remove_admin command.
// Format: /remove_admin <username>
func (h *OwnerHandler) HandleRemoveAdmin(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/remove_admin <username>")
	}

	ctx := context.Background()
	admin, err := h.directory.AdminByName(ctx, args[0])
	if err != nil {
		return replyError(c, err)
	}
	if err := h.directory.RemoveAdmin(ctx, p.ID, admin.ID); err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Admin %s removed. Their matches stay under your control.", admin.Username))
}

// HandleStats handles the /stats command.
func (h *OwnerHandler) HandleStats(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	s, err := h.ranking.Stats(context.Background(), p.ID)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf(
		"📊 Platform stats\n"+
			"━━━━━━━━━━━━━━━\n"+
			"💵 Revenue: %s\n"+
			"💰 Wallets: %s\n"+
			"👥 Users: %d (%d banned)\n"+
			"🛡 Admins: %d\n"+
			"🎮 Matches: %d upcoming · %d live · %d completed\n"+
			"💸 Pending withdrawals: %d (%s)",
		h.format.money(s.Revenue), h.format.money(s.TotalBalance),
		s.Users, s.BannedUsers, s.Admins,
		s.UpcomingMatches, s.LiveMatches, s.CompletedMatches,
		s.PendingWithdrawals, h.format.money(s.PendingAmount),
	))
}

// HandleUsers handles the /users command.
func (h *OwnerHandler) HandleUsers(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	users, err := h.directory.Users(context.Background(), p.ID)
	if err != nil {
		return replyError(c, err)
	}
	if len(users) == 0 {
		return c.Reply("👥 No users yet")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Users (%d)\n", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "\n%s · %s", u.Username, h.format.money(u.Balance))
		if u.Banned {
			b.WriteString(" · 🚫 banned")
		}
	}
	return c.Reply(b.String())
}
