// Package gamble is the slot machine: three weighted symbol spins, a
// combo payout table and an atomic settle against the gold balance.
package gamble

import (
	"math/rand"
	"sort"
	"strings"
)

// WeightedSymbol is one reel symbol with its relative spin weight.
type WeightedSymbol struct {
	Symbol string
	Weight float64
}

// Symbols is the reel, rare symbols last.
var Symbols = []WeightedSymbol{
	{Symbol: "🍀", Weight: 0.25},
	{Symbol: "🍒", Weight: 1.0},
	{Symbol: "❤️", Weight: 1.0},
	{Symbol: "🍋", Weight: 1.0},
	{Symbol: "🍊", Weight: 0.8},
	{Symbol: "💀", Weight: 1.0},
	{Symbol: "🍉", Weight: 0.7},
	{Symbol: "🍇", Weight: 0.7},
	{Symbol: "⭐", Weight: 0.2},
	{Symbol: "💰", Weight: 0.15},
	{Symbol: "💎", Weight: 0.1},
	{Symbol: "👑", Weight: 0.08},
}

// SpecialCombos maps a repeated-symbol key to its payout multiplier.
// The key for two cherries is the cherry symbol twice, and so on.
type comboTable = map[string]int64

var SpecialCombos = comboTable{
	"🍀":       2,
	"🍒🍒":      3,
	"❤️❤️":    10,
	"🍀🍀":      15,
	"🍋🍋🍋":     25,
	"🍊🍊🍊":     25,
	"🍇🍇🍇":     25,
	"❤️❤️❤️":  50,
	"🍒🍒🍒":     40,
	"🍉🍉🍉":     50,
	"💎⭐💎":     50,
	"💎💰💎":     50,
	"👑💰👑":     65,
	"👑💎👑":     65,
	"👑⭐👑":     65,
	"🍀🍀🍀":     75,
	"⭐⭐⭐":     100,
	"💰💰💰":     100,
	"💎💎💎":     150,
	"👑👑👑":     333,
}

// Spin draws one symbol according to the reel weights.
func Spin(r *rand.Rand) string {
	total := 0.0
	for _, s := range Symbols {
		total += s.Weight
	}

	roll := r.Float64() * total
	cumulative := 0.0
	for _, s := range Symbols {
		cumulative += s.Weight
		if roll < cumulative {
			return s.Symbol
		}
	}
	return Symbols[len(Symbols)-1].Symbol
}

// CountCombos tallies how often each symbol appears in a spin result.
func CountCombos(result []string) map[string]int {
	counts := make(map[string]int, len(result))
	for _, symbol := range result {
		counts[symbol]++
	}
	return counts
}

// Multiplier sums the payout of every symbol's repeated-key combo. A
// spin with no matching combo pays zero.
func Multiplier(counts map[string]int) int64 {
	var total int64
	for symbol, count := range counts {
		key := strings.Repeat(symbol, count)
		total += SpecialCombos[key]
	}
	return total
}

// RewardTable returns the combo table sorted by ascending payout, for
// display.
func RewardTable() []struct {
	Combo      string
	Multiplier int64
} {
	out := make([]struct {
		Combo      string
		Multiplier int64
	}, 0, len(SpecialCombos))
	for combo, mult := range SpecialCombos {
		out = append(out, struct {
			Combo      string
			Multiplier int64
		}{combo, mult})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Multiplier != out[j].Multiplier {
			return out[i].Multiplier < out[j].Multiplier
		}
		return out[i].Combo < out[j].Combo
	})
	return out
}
