package models

import (
	"github.com/uptrace/bun"
)

const (
	ConditionBadlyDamaged = "BadlyDamaged"
	ConditionPoor         = "Poor"
	ConditionGood         = "Good"
	ConditionMint         = "Mint"
)

// CardCondition is one tier of a linear upgrade chain. Head and tail
// tiers have a null neighbor in one direction.
type CardCondition struct {
	bun.BaseModel `bun:"table:card_conditions,alias:cc"`

	ID            string  `bun:"id,pk"`
	Multiplier    float64 `bun:"multiplier,notnull"`
	UpgradeChance float64 `bun:"upgrade_chance,notnull,default:0"`
	UpgradePrice  int64   `bun:"upgrade_price,notnull,default:0"`
	NextID        *string `bun:"next_upgrade"`
	PreviousID    *string `bun:"previous_upgrade"`

	Next     *CardCondition `bun:"rel:belongs-to,join:next_upgrade=id"`
	Previous *CardCondition `bun:"rel:belongs-to,join:previous_upgrade=id"`
}

// DefaultConditions seeds the condition chain
// BadlyDamaged -> Poor -> Good -> Mint.
func DefaultConditions() []*CardCondition {
	ptr := func(s string) *string { return &s }
	return []*CardCondition{
		{ID: ConditionBadlyDamaged, Multiplier: 0.5, UpgradeChance: 0.8, UpgradePrice: 100, NextID: ptr(ConditionPoor)},
		{ID: ConditionPoor, Multiplier: 1.0, UpgradeChance: 0.5, UpgradePrice: 250, NextID: ptr(ConditionGood), PreviousID: ptr(ConditionBadlyDamaged)},
		{ID: ConditionGood, Multiplier: 1.5, UpgradeChance: 0.25, UpgradePrice: 500, NextID: ptr(ConditionMint), PreviousID: ptr(ConditionPoor)},
		{ID: ConditionMint, Multiplier: 2.0, PreviousID: ptr(ConditionGood)},
	}
}
