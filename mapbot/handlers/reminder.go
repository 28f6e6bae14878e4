package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// ReminderSender DMs users when their drop cooldown lapses. Reminders
// live only in memory, a restart simply drops pending ones.
type ReminderSender struct {
	client bot.Client
	logger *slog.Logger
}

func NewReminderSender(client bot.Client) *ReminderSender {
	return &ReminderSender{
		client: client,
		logger: slog.With(slog.String("service", "reminders")),
	}
}

// Schedule queues a single DM after delay. It returns immediately.
func (r *ReminderSender) Schedule(ctx context.Context, userID string, delay time.Duration) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		uid, err := snowflake.Parse(userID)
		if err != nil {
			return
		}
		dmChannel, err := r.client.Rest().CreateDMChannel(uid)
		if err != nil {
			r.logger.Debug("failed to open reminder DM channel",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return
		}
		_, err = r.client.Rest().CreateMessage(dmChannel.ID(), discord.MessageCreate{
			Content: "Your drop cooldown is over, fresh cards await.",
		})
		if err != nil {
			r.logger.Debug("failed to send reminder DM",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
	}()
}
