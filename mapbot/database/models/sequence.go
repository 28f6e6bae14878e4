package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// CardSequence is the single global counter card ids are allocated
// from. Row 0 is the only row.
type CardSequence struct {
	bun.BaseModel `bun:"table:card_sequences,alias:cs"`

	ID    int64 `bun:"id,pk"`
	Value int64 `bun:"value,notnull"`
}

// GuildSettings holds per-guild bot configuration.
type GuildSettings struct {
	bun.BaseModel `bun:"table:guild_settings,alias:gs"`

	GuildID            string  `bun:"guild_id,pk"`
	ChannelID          *string `bun:"channel_id"`
	PostedSettingsHint bool    `bun:"posted_settings_hint,notnull,default:false"`
}

// EventLog is an append-only action record for offline analytics.
// Writes are fire-and-forget and must never abort the triggering
// transaction.
type EventLog struct {
	bun.BaseModel `bun:"table:event_logs,alias:el"`

	ID        int64           `bun:"id,pk,autoincrement"`
	UserID    string          `bun:"user_id,notnull"`
	Username  string          `bun:"username,notnull"`
	Action    string          `bun:"action,notnull"`
	Payload   json.RawMessage `bun:"payload,type:jsonb"`
	CreatedAt time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}
