package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/handler"
	"arena-bot/internal/metrics"
	"arena-bot/internal/model"
	"arena-bot/internal/service"
)

// commandName extracts the command from a message text, dropping any
// "@botname" suffix.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "text"
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.TrimPrefix(cmd, "/")
}

// SessionMiddleware attaches the sender's principal when a valid session
// exists. Missing sessions are not an error here; RequireRole rejects them
// where login is needed.
func SessionMiddleware(sessions *service.SessionManager) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}
			p, err := sessions.Current(context.Background(), sender.ID)
			switch {
			case err == nil:
				c.Set(handler.PrincipalKey, p)
			case errors.Is(err, service.ErrAccountBanned):
				log.Debug().Int64("chat_user_id", sender.ID).Msg("Session dropped for banned account")
			case !errors.Is(err, service.ErrNotLoggedIn):
				log.Warn().Err(err).Int64("chat_user_id", sender.ID).Msg("Session lookup failed")
			}
			return next(c)
		}
	}
}

// RequireRole rejects senders without a session or whose role is not listed.
func RequireRole(roles ...model.Role) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			p, ok := handler.Principal(c)
			if !ok {
				c.Set(handler.OutcomeKey, handler.OutcomeRejected)
				return c.Reply("🔒 Please /login first")
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			log.Warn().
				Str("account_id", p.ID).
				Str("role", string(p.Role)).
				Str("command", commandName(c.Text())).
				Msg("Unauthorized command attempt")
			c.Set(handler.OutcomeKey, handler.OutcomeRejected)
			return c.Reply("❌ Permission denied")
		}
	}
}

// MetricsMiddleware records every handled command with its outcome.
func MetricsMiddleware(m *metrics.Metrics) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)

			outcome := handler.OutcomeOK
			if o, ok := c.Get(handler.OutcomeKey).(string); ok {
				outcome = o
			}
			if err != nil {
				outcome = handler.OutcomeError
			}
			m.ObserveCommand(commandName(c.Text()), outcome, time.Since(start))
			return err
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming commands.
// Arguments are left out since they may carry passwords.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			logEvent := log.Debug()
			if sender := c.Sender(); sender != nil {
				logEvent = logEvent.
					Int64("chat_user_id", sender.ID).
					Str("tg_username", sender.Username)
			}
			if chat := c.Chat(); chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("command", commandName(c.Text())).
				Msg("Received command")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", commandName(c.Text())).
						Msg("Recovered from panic in handler")
					c.Set(handler.OutcomeKey, handler.OutcomeError)
					err = c.Reply("❌ Internal error, please try again later")
				}
			}()
			return next(c)
		}
	}
}
