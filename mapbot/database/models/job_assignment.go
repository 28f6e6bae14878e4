package models

import (
	"time"

	"github.com/uptrace/bun"
)

// JobAssignment binds a card to one of a user's job slots. A row with
// null timestamps is an idle reservation; once started, activeUntil
// marks when the background loop may resolve it.
type JobAssignment struct {
	bun.BaseModel `bun:"table:job_assignments,alias:ja"`

	UserID      string     `bun:"user_id,pk"`
	Slot        string     `bun:"slot,pk"`
	CardID      *string    `bun:"card_id"`
	StartedAt   *time.Time `bun:"started_at"`
	ActiveUntil *time.Time `bun:"active_until"`
	GuildID     string     `bun:"guild_id"`
	ChannelID   string     `bun:"channel_id"`

	User *User `bun:"rel:belongs-to,join:user_id=id"`
	Card *Card `bun:"rel:belongs-to,join:card_id=id"`
}

func (a *JobAssignment) IsActive() bool {
	return a.ActiveUntil != nil
}

// Progress is the fraction of the active window elapsed, clamped to [0, 1].
func (a *JobAssignment) Progress(now time.Time) float64 {
	if a.ActiveUntil == nil || a.StartedAt == nil {
		return 0
	}

	duration := a.ActiveUntil.Sub(*a.StartedAt)
	if duration <= 0 {
		return 1
	}

	progress := float64(now.Sub(*a.StartedAt)) / float64(duration)
	if progress > 1 {
		return 1
	}
	if progress < 0 {
		return 0
	}
	return progress
}

func (a *JobAssignment) TimeRemaining(now time.Time) time.Duration {
	if a.ActiveUntil == nil {
		return 0
	}
	remaining := a.ActiveUntil.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
