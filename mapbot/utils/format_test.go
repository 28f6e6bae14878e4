package utils

import (
	"testing"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "now"},
		{"negative", -5 * time.Second, "now"},
		{"seconds only", 45 * time.Second, "45s"},
		{"minutes and seconds", 5*time.Minute + 2*time.Second, "5m 2s"},
		{"hours and minutes", time.Hour + 23*time.Minute, "1h 23m"},
		{"hours drop seconds", 2*time.Hour + 59*time.Second, "2h 0m"},
		{"rounds sub-second up", 900 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatCardLine(t *testing.T) {
	tests := []struct {
		name string
		card *models.Card
		want string
	}{
		{
			name: "plain card",
			card: &models.Card{ID: "A1B2", Username: "pishifat", ConditionID: models.ConditionGood},
			want: "🟩 **pishifat** `#A1B2`",
		},
		{
			name: "foil card",
			card: &models.Card{ID: "ZZ9X", Username: "Sotarks", ConditionID: models.ConditionMint, Foil: true},
			want: "🟦 **Sotarks** ✨ `#ZZ9X`",
		},
		{
			name: "with mapper rarity",
			card: &models.Card{
				ID:          "C3D4",
				Username:    "Monstrata",
				ConditionID: models.ConditionBadlyDamaged,
				Mapper:      &models.Mapper{Rarity: 7},
			},
			want: "🟫 **Monstrata** `#C3D4` · rarity 7",
		},
		{
			name: "unknown condition falls back",
			card: &models.Card{ID: "E5F6", Username: "rrtyui", ConditionID: "weird"},
			want: "⬜ **rrtyui** `#E5F6`",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatCardLine(tt.card); got != tt.want {
				t.Errorf("FormatCardLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
