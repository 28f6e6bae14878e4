package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/economy/rewards"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Daily = discord.SlashCommandCreate{
	Name:        "daily",
	Description: "Claim your daily gold reward",
}

func DailyHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		amount, err := b.Rewards.ClaimDaily(ctx, userID)
		if err != nil {
			var claimedErr *rewards.AlreadyClaimedError
			if errors.As(err, &claimedErr) {
				return utils.CreateError(e, fmt.Sprintf("You already claimed today. Next reward in **%s**.",
					utils.FormatDuration(claimedErr.Remaining)))
			}
			slog.Error("Daily claim failed",
				slog.String("user_id", userID),
				slog.Any("error", err))
			return utils.CreateError(e, "Failed to claim your daily reward. Please try again later.")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "Daily reward claimed!",
				Description: fmt.Sprintf("You received **%d** gold. Come back after midnight for more.", amount),
				Color:       utils.GoldColor,
			}},
		})
	}
}
