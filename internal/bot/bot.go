// Package bot wires the Telegram transport to the arena handlers.
package bot

import (
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/config"
	"arena-bot/internal/handler"
	"arena-bot/internal/metrics"
	"arena-bot/internal/model"
	"arena-bot/internal/pkg/lock"
	"arena-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot  *tele.Bot
	deps *Dependencies

	accountHandler *handler.AccountHandler
	matchHandler   *handler.MatchHandler
	adminHandler   *handler.AdminHandler
	ownerHandler   *handler.OwnerHandler
	rankingHandler *handler.RankingHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	Directory   *service.DirectoryService
	Sessions    *service.SessionManager
	Accounts    *service.AccountService
	Matches     *service.MatchService
	Withdrawals *service.WithdrawalService
	Ranking     *service.RankingService
	Strategy    *service.StrategyService
	Metrics     *metrics.Metrics
	InFlight    *lock.InFlight
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: deps.Config.Bot.PollTimeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{bot: teleBot, deps: deps}
	format := handler.Formatter{Currency: deps.Config.Arena.Currency}
	b.accountHandler = handler.NewAccountHandler(deps.Directory, deps.Sessions, deps.Accounts, deps.Withdrawals, format)
	b.matchHandler = handler.NewMatchHandler(deps.Matches, deps.Strategy, deps.InFlight, format)
	b.adminHandler = handler.NewAdminHandler(deps.Matches, deps.Withdrawals, deps.Directory, format)
	b.ownerHandler = handler.NewOwnerHandler(deps.Directory, deps.Accounts, deps.Ranking, format)
	b.rankingHandler = handler.NewRankingHandler(deps.Ranking, format)

	b.registerMiddleware()
	b.registerHandlers()
	return b, nil
}

// registerMiddleware registers the middleware shared by every command.
// Metrics wrap recovery so panics are still counted.
func (b *Bot) registerMiddleware() {
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(MetricsMiddleware(b.deps.Metrics))
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(SessionMiddleware(b.deps.Sessions))
}

// registerHandlers registers all command handlers by access level.
func (b *Bot) registerHandlers() {
	// Public
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/help", b.accountHandler.HandleStart)
	b.bot.Handle("/register", b.accountHandler.HandleRegister)
	b.bot.Handle("/login", b.accountHandler.HandleLogin)
	b.bot.Handle("/logout", b.accountHandler.HandleLogout)
	b.bot.Handle("/matches", b.matchHandler.HandleMatches)
	b.bot.Handle("/match", b.matchHandler.HandleMatch)
	b.bot.Handle("/formats", b.matchHandler.HandleFormats)
	b.bot.Handle("/leaderboard", b.rankingHandler.HandleLeaderboard)

	// Any signed-in account
	signedIn := b.bot.Group()
	signedIn.Use(RequireRole(model.RoleUser, model.RoleAdmin, model.RoleOwner))
	signedIn.Handle("/whoami", b.accountHandler.HandleWhoAmI)
	signedIn.Handle("/strategy", b.matchHandler.HandleStrategy)

	// Players
	users := b.bot.Group()
	users.Use(RequireRole(model.RoleUser))
	users.Handle("/balance", b.accountHandler.HandleBalance)
	users.Handle("/history", b.accountHandler.HandleHistory)
	users.Handle("/deposit", b.accountHandler.HandleDeposit)
	users.Handle("/withdraw_upi", b.accountHandler.HandleWithdrawUPI)
	users.Handle("/withdraw_bank", b.accountHandler.HandleWithdrawBank)
	users.Handle("/mymatches", b.matchHandler.HandleMyMatches)
	users.Handle("/join", b.matchHandler.HandleJoin)
	users.Handle("/leave", b.matchHandler.HandleLeave)
	users.Handle("/room", b.matchHandler.HandleRoom)

	// Match hosts
	admins := b.bot.Group()
	admins.Use(RequireRole(model.RoleAdmin))
	admins.Handle("/create_match", b.adminHandler.HandleCreateMatch)
	admins.Handle("/edit_match", b.adminHandler.HandleEditMatch)
	admins.Handle("/my_hosted", b.adminHandler.HandleMyHosted)

	// Operators: admins and the owner
	operators := b.bot.Group()
	operators.Use(RequireRole(model.RoleAdmin, model.RoleOwner))
	operators.Handle("/set_room", b.adminHandler.HandleSetRoom)
	operators.Handle("/clear_room", b.adminHandler.HandleClearRoom)
	operators.Handle("/post_results", b.adminHandler.HandlePostResults)
	operators.Handle("/withdrawals", b.adminHandler.HandleWithdrawals)
	operators.Handle("/approve", b.adminHandler.HandleApprove)
	operators.Handle("/reject", b.adminHandler.HandleReject)

	// Owner
	owner := b.bot.Group()
	owner.Use(RequireRole(model.RoleOwner))
	owner.Handle("/credit", b.ownerHandler.HandleCredit)
	owner.Handle("/debit", b.ownerHandler.HandleDebit)
	owner.Handle("/ban", b.ownerHandler.HandleBan)
	owner.Handle("/add_admin", b.ownerHandler.HandleAddAdmin)
	owner.Handle("/remove_admin", b.ownerHandler.HandleRemoveAdmin)
	owner.Handle("/stats", b.ownerHandler.HandleStats)
	owner.Handle("/users", b.ownerHandler.HandleUsers)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
