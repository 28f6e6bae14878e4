package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CommandTimeout records the last use of a rate-limited action per user.
type CommandTimeout struct {
	bun.BaseModel `bun:"table:command_timeouts,alias:ct"`

	UserID   string    `bun:"user_id,pk"`
	Type     string    `bun:"command,pk"`
	LastUsed time.Time `bun:"last_used,notnull"`
}

const (
	EffectDropSpeedup  = "drop speedup"
	EffectClaimSpeedup = "claim speedup"
)

// UserEffect is a timed per-user effect. Reusing the same effect
// extends the expiry from max(now, existing expiry).
type UserEffect struct {
	bun.BaseModel `bun:"table:user_effects,alias:ue"`

	UserID      string    `bun:"user_id,pk"`
	Effect      string    `bun:"effect,pk"`
	ActiveUntil time.Time `bun:"active_until,notnull"`
}
