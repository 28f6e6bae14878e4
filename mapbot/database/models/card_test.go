package models

import (
	"testing"
	"time"
)

func TestComputeBurnValue(t *testing.T) {
	tests := []struct {
		name       string
		rarity     int
		multiplier float64
		foil       bool
		want       int64
	}{
		{name: "poor condition", rarity: 10, multiplier: 1.0, want: 50},
		{name: "badly damaged halves", rarity: 10, multiplier: 0.5, want: 25},
		{name: "mint doubles", rarity: 10, multiplier: 2.0, want: 100},
		{name: "foil doubles again", rarity: 10, multiplier: 1.0, foil: true, want: 100},
		{name: "rounds up", rarity: 3, multiplier: 0.5, want: 8},
		{name: "zero rarity", rarity: 0, multiplier: 2.0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBurnValue(tt.rarity, tt.multiplier, tt.foil)
			if got != tt.want {
				t.Errorf("ComputeBurnValue(%d, %v, %v) = %d, want %d",
					tt.rarity, tt.multiplier, tt.foil, got, tt.want)
			}
		})
	}
}

func TestDustValue(t *testing.T) {
	tests := []struct {
		rarity int
		want   int64
	}{
		{0, 0},
		{1, 1},
		{10, 1},
		{11, 2},
		{100, 10},
		{133, 14},
	}
	for _, tt := range tests {
		if got := DustValue(tt.rarity); got != tt.want {
			t.Errorf("DustValue(%d) = %d, want %d", tt.rarity, got, tt.want)
		}
	}
}

func TestDustType(t *testing.T) {
	tests := []struct {
		condition string
		want      string
	}{
		{ConditionBadlyDamaged, ItemDamagedDust},
		{ConditionPoor, ItemPoorDust},
		{ConditionGood, ItemGoodDust},
		{ConditionMint, ItemMintDust},
	}
	for _, tt := range tests {
		if got := DustType(tt.condition); got != tt.want {
			t.Errorf("DustType(%s) = %s, want %s", tt.condition, got, tt.want)
		}
	}
}

func TestCardEffort(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Hour)

	tests := []struct {
		name string
		card Card
		want int64
	}{
		{
			name: "baseline motivation",
			card: Card{JobBaseEffort: 100, JobMotivation: 7},
			want: 70,
		},
		{
			name: "max motivation",
			card: Card{JobBaseEffort: 100, JobMotivation: 10},
			want: 100,
		},
		{
			name: "mindblock halves",
			card: Card{JobBaseEffort: 100, JobMotivation: 10, JobMindblockedUntil: &later},
			want: 50,
		},
		{
			name: "expired mindblock ignored",
			card: Card{JobBaseEffort: 100, JobMotivation: 10, JobMindblockedUntil: &now},
			want: 100,
		},
		{
			name: "rounds to nearest",
			card: Card{JobBaseEffort: 25, JobMotivation: 3},
			want: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.Effort(now); got != tt.want {
				t.Errorf("Effort = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCardMindblocked(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	if (&Card{}).Mindblocked(now) {
		t.Error("card with no mindblock timestamp reported mindblocked")
	}
	if !(&Card{JobMindblockedUntil: &future}).Mindblocked(now) {
		t.Error("card with future mindblock not reported mindblocked")
	}
	if (&Card{JobMindblockedUntil: &past}).Mindblocked(now) {
		t.Error("card with past mindblock reported mindblocked")
	}
}
