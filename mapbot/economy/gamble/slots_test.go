package gamble

import (
	"math/rand"
	"testing"
)

func TestMultiplier(t *testing.T) {
	tests := []struct {
		name   string
		result []string
		want   int64
	}{
		{name: "no combo", result: []string{"💀", "🍋", "🍒"}, want: 0},
		{name: "single clover", result: []string{"🍀", "💀", "🍋"}, want: 2},
		{name: "two cherries", result: []string{"🍒", "🍒", "💀"}, want: 3},
		{name: "two hearts", result: []string{"❤️", "💀", "❤️"}, want: 10},
		{name: "three cherries", result: []string{"🍒", "🍒", "🍒"}, want: 40},
		{name: "triple clover", result: []string{"🍀", "🍀", "🍀"}, want: 75},
		{name: "jackpot crowns", result: []string{"👑", "👑", "👑"}, want: 333},
		{name: "two combos stack", result: []string{"🍀", "🍒", "🍒"}, want: 5},
		{name: "three lemons", result: []string{"🍋", "🍋", "🍋"}, want: 25},
		{name: "single star pays nothing", result: []string{"⭐", "💀", "🍋"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Multiplier(CountCombos(tt.result))
			if got != tt.want {
				t.Errorf("Multiplier(%v) = %d, want %d", tt.result, got, tt.want)
			}
		})
	}
}

func TestCountCombos(t *testing.T) {
	counts := CountCombos([]string{"🍒", "💀", "🍒"})
	if counts["🍒"] != 2 || counts["💀"] != 1 {
		t.Errorf("CountCombos = %v, want cherries 2, skull 1", counts)
	}
}

func TestSpinDistribution(t *testing.T) {
	r := rand.New(rand.NewSource(13))

	counts := make(map[string]int)
	const spins = 200000
	for i := 0; i < spins; i++ {
		counts[Spin(r)]++
	}

	total := 0.0
	for _, s := range Symbols {
		total += s.Weight
	}

	for _, s := range Symbols {
		if counts[s.Symbol] == 0 {
			t.Errorf("symbol %s never drawn", s.Symbol)
			continue
		}
		want := s.Weight / total
		got := float64(counts[s.Symbol]) / spins
		if got < want*0.8 || got > want*1.2 {
			t.Errorf("symbol %s rate = %.4f, want around %.4f", s.Symbol, got, want)
		}
	}

	// Common symbols must dominate rare ones.
	if counts["🍒"] <= counts["👑"] {
		t.Errorf("cherry count %d not above crown count %d", counts["🍒"], counts["👑"])
	}
}

func TestRewardTableSorted(t *testing.T) {
	table := RewardTable()
	if len(table) != len(SpecialCombos) {
		t.Fatalf("reward table has %d rows, want %d", len(table), len(SpecialCombos))
	}
	for i := 1; i < len(table); i++ {
		if table[i].Multiplier < table[i-1].Multiplier {
			t.Errorf("reward table not sorted at index %d", i)
		}
	}
}
