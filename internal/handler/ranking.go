package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"arena-bot/internal/service"
)

// RankingHandler handles ranking-related commands.
type RankingHandler struct {
	rankingService *service.RankingService
	format         Formatter
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(rankingService *service.RankingService, format Formatter) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
		format:         format,
	}
}

// HandleLeaderboard handles the /leaderboard command.
// Displays the top winners by total prize money.
func (h *RankingHandler) HandleLeaderboard(c tele.Context) error {
	board, err := h.rankingService.Leaderboard(context.Background(), 10)
	if err != nil {
		return replyError(c, err)
	}

	var b strings.Builder
	b.WriteString("🏆 Leaderboard TOP 10\n")
	b.WriteString("━━━━━━━━━━━━━━━\n")
	if len(board) == 0 {
		b.WriteString("No completed matches yet\n")
	}
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range board {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		name := e.Username
		if name == "" {
			name = e.UserID
		}
		fmt.Fprintf(&b, "%s %s: %s (%d wins)\n", rank, name, h.format.money(e.Winnings), e.Wins)
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return c.Reply(b.String())
}
