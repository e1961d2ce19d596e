// Package handler provides Telegram bot command handlers.
package handler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/model"
	"arena-bot/internal/pkg/lock"
	"arena-bot/internal/service"
)

// Context keys shared with the bot middleware.
const (
	PrincipalKey = "principal"
	OutcomeKey   = "outcome"
)

// Outcomes recorded on the context for metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// TimeLayout is how schedules are entered and shown.
const TimeLayout = "2006-01-02 15:04"

// Principal returns the identity the session middleware attached to c.
func Principal(c tele.Context) (model.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(model.Principal)
	return p, ok
}

// errorText maps service errors to user-facing replies. Unknown errors get a
// generic reply and report false.
func errorText(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		return "❌ Amount must be greater than 0", true
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Insufficient balance", true
	case errors.Is(err, service.ErrMatchFull):
		return "❌ This match is full", true
	case errors.Is(err, service.ErrAlreadyJoined):
		return "❌ You have already joined this match", true
	case errors.Is(err, service.ErrInvalidTeamData):
		return "❌ Team details are incomplete: every player needs a name and a numeric game UID", true
	case errors.Is(err, service.ErrMatchNotOpen):
		return "❌ This match is no longer open", true
	case errors.Is(err, service.ErrNotParticipant):
		return "❌ You are not in this match", true
	case errors.Is(err, service.ErrInvalidMode):
		return "❌ Unknown game mode or sub-mode", true
	case errors.Is(err, service.ErrInvalidMatch):
		return "❌ Invalid match details", true
	case errors.Is(err, service.ErrResultsPosted):
		return "❌ Results have already been posted for this match", true
	case errors.Is(err, service.ErrInvalidResults):
		return "❌ Invalid results", true
	case errors.Is(err, service.ErrRosterLocked):
		return "❌ Players have joined: format, entry fee and capacity can no longer change", true
	case errors.Is(err, service.ErrIncompleteDetails):
		return "❌ Payout details are incomplete", true
	case errors.Is(err, service.ErrAlreadyResolved):
		return "❌ This request has already been resolved", true
	case errors.Is(err, service.ErrDuplicateUsername):
		return "❌ Username is already taken", true
	case errors.Is(err, service.ErrAccountBanned):
		return "🚫 Your account is banned", true
	case errors.Is(err, service.ErrInvalidCredentials):
		return "❌ Username and password are required", true
	case errors.Is(err, service.ErrInvalidProfile):
		return "❌ Invalid registration details", true
	case errors.Is(err, service.ErrNotLoggedIn):
		return "🔒 Please /login first", true
	case errors.Is(err, service.ErrForbidden):
		return "❌ Permission denied", true
	case errors.Is(err, service.ErrNotFound):
		return "❌ Not found", true
	case errors.Is(err, lock.ErrBusy):
		return "⏳ Your previous request is still running", true
	default:
		return "❌ Something went wrong, please try again later", false
	}
}

// replyError answers with the mapped error text and records the outcome.
func replyError(c tele.Context, err error) error {
	text, known := errorText(err)
	if known {
		c.Set(OutcomeKey, OutcomeRejected)
		log.Debug().Err(err).Str("command", c.Text()).Msg("Command rejected")
	} else {
		c.Set(OutcomeKey, OutcomeError)
		log.Error().Err(err).Str("command", c.Text()).Msg("Command failed")
	}
	return c.Reply(text)
}

// usage answers with a usage hint and records a rejected outcome.
func usage(c tele.Context, text string) error {
	c.Set(OutcomeKey, OutcomeRejected)
	return c.Reply("ℹ️ Usage: " + text)
}

// parseAmount parses a strictly positive decimal amount.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, service.ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return decimal.Zero, service.ErrInvalidAmount
	}
	return d, nil
}

// splitFields splits a "|" separated payload, trimming each field.
func splitFields(payload string) []string {
	parts := strings.Split(payload, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Formatter renders money and times for replies.
type Formatter struct {
	Currency string
	Location *time.Location
}

func (f Formatter) money(d decimal.Decimal) string {
	return f.Currency + d.StringFixed(2)
}

func (f Formatter) when(t time.Time) string {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimeLayout)
}

func (f Formatter) parseTime(s string) (time.Time, error) {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule %q: %w", s, service.ErrInvalidMatch)
	}
	return t, nil
}

func (f Formatter) matchLine(m *model.Match, now time.Time) string {
	fee := "Free"
	if m.EntryFee.IsPositive() {
		fee = f.money(m.EntryFee)
	}
	return fmt.Sprintf("🎮 %s [%s]\n   %s %s · %s · %s\n   Entry %s · Prize %s · %d/%d slots · %s",
		m.Title, m.ID, m.GameMode, m.SubMode, m.Perspective, f.when(m.ScheduledAt),
		fee, f.money(m.PrizePool), len(m.Participants), m.TotalSlots, m.EffectiveStatus(now))
}
