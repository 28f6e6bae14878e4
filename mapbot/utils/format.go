package utils

import (
	"fmt"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

// ConditionEmoji maps a condition tier to its display glyph.
func ConditionEmoji(conditionID string) string {
	switch conditionID {
	case models.ConditionBadlyDamaged:
		return "🟫"
	case models.ConditionPoor:
		return "⬜"
	case models.ConditionGood:
		return "🟩"
	case models.ConditionMint:
		return "🟦"
	default:
		return "⬜"
	}
}

// FormatCardLine renders a one-line card summary for embeds.
func FormatCardLine(card *models.Card) string {
	foil := ""
	if card.Foil {
		foil = " ✨"
	}
	rarity := ""
	if card.Mapper != nil {
		rarity = fmt.Sprintf(" · rarity %d", card.Mapper.Rarity)
	}
	return fmt.Sprintf("%s **%s**%s `#%s`%s", ConditionEmoji(card.ConditionID), card.Username, foil, card.ID, rarity)
}

// FormatDuration renders a duration as a compact human string, e.g.
// "1h 23m" or "45s".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
