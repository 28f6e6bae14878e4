package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is created lazily on first interaction and never deleted.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                   string    `bun:"id,pk"`
	Username             string    `bun:"username,notnull"`
	ReminderEnabled      bool      `bun:"reminder_enabled,notnull,default:false"`
	GamblingWarningShown bool      `bun:"gambling_warning_shown,notnull,default:false"`
	CreatedAt            time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt            time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
