package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/model"
	"arena-bot/internal/service"
)

// AccountHandler handles sign-in and wallet commands.
type AccountHandler struct {
	directory   *service.DirectoryService
	sessions    *service.SessionManager
	accounts    *service.AccountService
	withdrawals *service.WithdrawalService
	format      Formatter
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(
	directory *service.DirectoryService,
	sessions *service.SessionManager,
	accounts *service.AccountService,
	withdrawals *service.WithdrawalService,
	format Formatter,
) *AccountHandler {
	return &AccountHandler{
		directory:   directory,
		sessions:    sessions,
		accounts:    accounts,
		withdrawals: withdrawals,
		format:      format,
	}
}

// HandleStart handles the /start command.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	return c.Reply("🏆 Welcome to the tournament arena!\n\n" +
		"/register <username> <password> [email]\n" +
		"/login <username> <password>\n" +
		"/matches - open matches\n" +
		"/formats - match formats and slots\n" +
		"/leaderboard - top winners")
}

// HandleRegister handles the /register command.
// Format: /register <username> <password> [email]
func (h *AccountHandler) HandleRegister(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return usage(c, "/register <username> <password> [email]")
	}
	profile := service.Profile{Username: args[0], Password: args[1]}
	if len(args) > 2 {
		profile.Email = args[2]
	}

	user, err := h.directory.Register(context.Background(), profile)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("✅ Account %s created. Use /login to sign in.", user.Username))
}

// HandleLogin handles the /login command.
// Format: /login <username> <password>
func (h *AccountHandler) HandleLogin(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	args := c.Args()
	if len(args) < 2 {
		return usage(c, "/login <username> <password>")
	}

	result, p, err := h.sessions.Login(context.Background(), sender.ID, args[0], args[1])
	if err != nil {
		return replyError(c, err)
	}
	switch result {
	case model.LoginSuccess:
		return c.Reply(fmt.Sprintf("✅ Logged in as %s (%s)", p.Username, p.Role))
	case model.LoginBanned:
		c.Set(OutcomeKey, OutcomeRejected)
		return c.Reply("🚫 Your account is banned")
	default:
		c.Set(OutcomeKey, OutcomeRejected)
		return c.Reply("❌ Invalid username or password")
	}
}

// HandleLogout handles the /logout command.
func (h *AccountHandler) HandleLogout(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if !h.sessions.Logout(sender.ID) {
		return c.Reply("You are not logged in")
	}
	return c.Reply("👋 Logged out")
}

// HandleWhoAmI handles the /whoami command.
func (h *AccountHandler) HandleWhoAmI(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	return c.Reply(fmt.Sprintf("👤 %s\nRole: %s\nID: %s", p.Username, p.Role, p.ID))
}

// HandleBalance handles the /balance command.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	balance, err := h.accounts.Balance(context.Background(), p.ID)
	if err != nil {
		return replyError(c, err)
	}
	return c.Reply(fmt.Sprintf("💰 Balance: %s", h.format.money(balance)))
}

// HandleDeposit handles the /deposit command.
// Format: /deposit <amount>
func (h *AccountHandler) HandleDeposit(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	args := c.Args()
	if len(args) < 1 {
		return usage(c, "/deposit <amount>")
	}
	amount, err := parseAmount(args[0])
	if err != nil {
		return replyError(c, err)
	}

	ctx := context.Background()
	if _, err := h.accounts.Deposit(ctx, p.ID, amount); err != nil {
		return replyError(c, err)
	}
	balance, _ := h.accounts.Balance(ctx, p.ID)
	return c.Reply(fmt.Sprintf("✅ Deposited %s\n💰 Balance: %s", h.format.money(amount), h.format.money(balance)))
}

// HandleHistory handles the /history command.
// Format: /history [limit]
func (h *AccountHandler) HandleHistory(c tele.Context) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	limit := 10
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usage(c, "/history [limit]")
		}
		limit = n
	}

	items, err := h.accounts.History(context.Background(), p.ID, limit)
	if err != nil {
		return replyError(c, err)
	}
	if len(items) == 0 {
		return c.Reply("📜 No transactions yet")
	}

	var b strings.Builder
	b.WriteString("📜 Wallet history\n")
	for _, item := range items {
		tx := item.Transaction
		sign := "-"
		if tx.Kind.IsCredit() {
			sign = "+"
		}
		label := string(tx.Kind)
		if tx.Refund {
			label = "refund"
		}
		fmt.Fprintf(&b, "\n%s%s %s · %s", sign, h.format.money(tx.Amount), label, h.format.when(tx.CreatedAt))
		if tx.Status != model.TxSuccess {
			fmt.Fprintf(&b, " (%s)", tx.Status)
		}
		if w := item.Withdrawal; w != nil {
			fmt.Fprintf(&b, "\n   withdrawal %s via %s: %s", w.ID, w.Method, w.Status)
			if w.Remark != "" {
				fmt.Fprintf(&b, " · %s", w.Remark)
			}
		}
	}
	return c.Reply(b.String())
}

// HandleWithdrawUPI handles the /withdraw_upi command.
// Format: /withdraw_upi <amount> <upi_id>
func (h *AccountHandler) HandleWithdrawUPI(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return usage(c, "/withdraw_upi <amount> <upi_id>")
	}
	return h.withdraw(c, args[0], model.UPIDetails{UPIID: args[1]})
}

// HandleWithdrawBank handles the /withdraw_bank command.
// Format: /withdraw_bank <amount> | <holder> | <account number> | <IFSC> | <bank name>
func (h *AccountHandler) HandleWithdrawBank(c tele.Context) error {
	fields := splitFields(c.Message().Payload)
	if len(fields) != 5 {
		return usage(c, "/withdraw_bank <amount> | <holder> | <account number> | <IFSC> | <bank name>")
	}
	return h.withdraw(c, fields[0], model.BankDetails{
		AccountHolder: fields[1],
		AccountNumber: fields[2],
		IFSC:          fields[3],
		BankName:      fields[4],
	})
}

func (h *AccountHandler) withdraw(c tele.Context, rawAmount string, details model.PayoutDetails) error {
	p, ok := Principal(c)
	if !ok {
		return replyError(c, service.ErrNotLoggedIn)
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return replyError(c, err)
	}

	ctx := context.Background()
	req, err := h.withdrawals.Request(ctx, p.ID, amount, details)
	if err != nil {
		return replyError(c, err)
	}
	balance, _ := h.accounts.Balance(ctx, p.ID)

	log.Info().
		Str("user_id", p.ID).
		Str("withdrawal_id", req.ID).
		Str("amount", amount.String()).
		Str("method", string(req.Method)).
		Msg("Withdrawal requested via bot")

	return c.Reply(fmt.Sprintf(
		"✅ Withdrawal request %s submitted\n"+
			"💸 %s via %s, pending review\n"+
			"💰 Balance: %s",
		req.ID, h.format.money(amount), req.Method, h.format.money(balance),
	))
}
