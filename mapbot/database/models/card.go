package models

import (
	"math"
	"time"

	"github.com/uptrace/bun"
)

// Card is the central mutable entity. Identity is a short reversed
// base-36 code allocated from a global sequence. A burned card is
// terminal and can never be traded, claimed or assigned again.
type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID          string  `bun:"id,pk"`
	MapperID    int64   `bun:"mapper_id,notnull"`
	OwnerID     *string `bun:"owner_id"`
	DroppedByID string  `bun:"dropped_by_id,notnull"`
	ClaimedByID *string `bun:"claimed_by_id"`
	Username    string  `bun:"username,notnull"`
	AvatarURL   string  `bun:"avatar_url,notnull"`
	ConditionID string  `bun:"condition,notnull"`
	Burned      bool    `bun:"burned,notnull,default:false"`
	Foil        bool    `bun:"foil,notnull,default:false"`

	// Denormalized cache, recomputed on insert and condition change only.
	BurnValue int64 `bun:"burn_value,notnull,default:0"`

	JobBaseEffort       int64      `bun:"job_base_effort,notnull,default:0"`
	JobMotivation       int64      `bun:"job_motivation,notnull,default:7"`
	JobMindblockedUntil *time.Time `bun:"job_mindblocked_until"`

	CreatedAt time.Time `bun:"created_at,notnull"`

	Mapper    *Mapper        `bun:"rel:belongs-to,join:mapper_id=id"`
	Owner     *User          `bun:"rel:belongs-to,join:owner_id=id"`
	DroppedBy *User          `bun:"rel:belongs-to,join:dropped_by_id=id"`
	Condition *CardCondition `bun:"rel:belongs-to,join:condition=id"`
}

// ComputeBurnValue derives the gold credited on burn from an immutable
// snapshot of the relevant fields: rarity x condition multiplier x 5,
// doubled for foils, rounded up.
func ComputeBurnValue(rarity int, conditionMultiplier float64, foil bool) int64 {
	value := float64(rarity) * conditionMultiplier * 5
	if foil {
		value *= 2
	}
	return int64(math.Ceil(value))
}

// DustValue is the amount of condition dust credited on burn.
func DustValue(rarity int) int64 {
	return int64(math.Ceil(float64(rarity) * 0.1))
}

// DustType maps a condition tier to its dust currency id.
func DustType(conditionID string) string {
	switch conditionID {
	case ConditionBadlyDamaged:
		return ItemDamagedDust
	case ConditionPoor:
		return ItemPoorDust
	case ConditionGood:
		return ItemGoodDust
	case ConditionMint:
		return ItemMintDust
	default:
		return ItemPoorDust
	}
}

// Mindblocked reports whether the card is under an active mindblock
// penalty at the given instant.
func (c *Card) Mindblocked(now time.Time) bool {
	return c.JobMindblockedUntil != nil && now.Before(*c.JobMindblockedUntil)
}

// Effort is the card's current job output: base effort scaled by
// motivation, halved while mindblocked.
func (c *Card) Effort(now time.Time) int64 {
	factor := 1.0
	if c.Mindblocked(now) {
		factor = 0.5
	}
	return int64(math.Round(float64(c.JobBaseEffort) * float64(c.JobMotivation) * 0.1 * factor))
}
