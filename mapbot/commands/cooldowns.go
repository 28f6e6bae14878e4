package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Cooldowns = discord.SlashCommandCreate{
	Name:        "cooldowns",
	Description: "Show your drop, claim and daily cooldowns",
}

func CooldownsHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		var description strings.Builder
		for _, t := range []struct {
			label string
			kind  string
		}{
			{"Drop", timeout.TypeDrop},
			{"Claim", timeout.TypeClaim},
			{"Daily", timeout.TypeDaily},
		} {
			view, err := b.Timeouts.Get(ctx, b.DB.BunDB(), userID, t.kind, false)
			if err != nil {
				slog.Error("Failed to read cooldown",
					slog.String("type", t.kind),
					slog.Any("error", err))
				return utils.CreateError(e, "Failed to read your cooldowns. Please try again later.")
			}
			description.WriteString(fmt.Sprintf("**%s**: %s%s\n", t.label, cooldownState(view), cooldownNotes(view)))
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "Cooldowns",
				Description: description.String(),
				Color:       utils.InfoColor,
			}},
		})
	}
}

func cooldownState(view timeout.View) string {
	if !view.Blocked() {
		return "ready ✅"
	}
	return utils.FormatDuration(view.Remaining)
}

func cooldownNotes(view timeout.View) string {
	var notes []string
	if view.SpeedupActive {
		notes = append(notes, "speedup active")
	}
	if view.FreeClaimBypass {
		notes = append(notes, "free claim ready")
	}
	if len(notes) == 0 {
		return ""
	}
	return " (" + strings.Join(notes, ", ") + ")"
}
