// Package game defines the match formats the arena can host and their slot table.
package game

import (
	"strings"

	"arena-bot/internal/model"
)

// Format is one hostable (game mode, sub-mode) pair.
type Format struct {
	Mode     model.GameMode
	SubMode  model.SubMode
	Slots    int // roster capacity; each slot is one team
	TeamSize int // players per team
}

// Key returns the registry key of the format.
func (f Format) Key() string {
	return formatKey(f.Mode, f.SubMode)
}

func formatKey(mode model.GameMode, sub model.SubMode) string {
	return string(mode) + "/" + string(sub)
}

// builtinFormats is the slot table of every format the arena hosts.
var builtinFormats = []Format{
	{Mode: model.BattleRoyale, SubMode: model.Solo, Slots: 50, TeamSize: 1},
	{Mode: model.BattleRoyale, SubMode: model.Duo, Slots: 25, TeamSize: 2},
	{Mode: model.BattleRoyale, SubMode: model.Squad, Slots: 12, TeamSize: 4},
	{Mode: model.ClashSquad, SubMode: model.FourVFour, Slots: 2, TeamSize: 4},
	{Mode: model.LoneWolf, SubMode: model.OneVOne, Slots: 2, TeamSize: 1},
	{Mode: model.LoneWolf, SubMode: model.TwoVTwo, Slots: 2, TeamSize: 2},
}

// TeamSize returns the number of players a sub-mode fields per team, or 0 if unknown.
func TeamSize(sub model.SubMode) int {
	switch sub {
	case model.Solo, model.OneVOne:
		return 1
	case model.Duo, model.TwoVTwo:
		return 2
	case model.Squad, model.FourVFour:
		return 4
	}
	return 0
}

var modeAliases = map[string]model.GameMode{
	"br":            model.BattleRoyale,
	"battleroyale":  model.BattleRoyale,
	"battle royale": model.BattleRoyale,
	"cs":            model.ClashSquad,
	"clashsquad":    model.ClashSquad,
	"clash squad":   model.ClashSquad,
	"lw":            model.LoneWolf,
	"lonewolf":      model.LoneWolf,
	"lone wolf":     model.LoneWolf,
}

// ParseMode resolves user input such as "br" or "Battle Royale" to a game mode.
func ParseMode(s string) (model.GameMode, bool) {
	m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// ParseSubMode resolves user input such as "squad" or "4v4" to a sub-mode.
func ParseSubMode(s string) (model.SubMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solo":
		return model.Solo, true
	case "duo":
		return model.Duo, true
	case "squad":
		return model.Squad, true
	case "4v4":
		return model.FourVFour, true
	case "1v1":
		return model.OneVOne, true
	case "2v2":
		return model.TwoVTwo, true
	}
	return "", false
}
