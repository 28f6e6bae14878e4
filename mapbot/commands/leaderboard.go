package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/services/leaderboard"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "Show the server-wide standings",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionString{
			Name:        "board",
			Description: "Which standings to show",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "gold", Value: "gold"},
				{Name: "cards", Value: "cards"},
				{Name: "collection value", Value: "value"},
			},
		},
	},
}

func LeaderboardHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		board := e.SlashCommandInteractionData().String("board")
		snapshot := b.Leaderboard.Snapshot()

		var entries []leaderboard.Entry
		var title, unit string
		switch board {
		case "cards":
			entries, title, unit = snapshot.Cards, "Most cards", "cards"
		case "value":
			entries, title, unit = snapshot.BurnValue, "Most valuable collections", "gold"
		default:
			entries, title, unit = snapshot.Gold, "Richest collectors", "gold"
		}

		if len(entries) == 0 {
			return utils.CreateError(e, "No standings yet. Go drop some cards.")
		}

		var description strings.Builder
		for i, entry := range entries {
			description.WriteString(fmt.Sprintf("%d. **%s** · %d %s\n", i+1, entry.Username, entry.Value, unit))
		}

		footer := ""
		if !snapshot.RefreshedAt.IsZero() {
			footer = fmt.Sprintf("Updated <t:%d:R>", snapshot.RefreshedAt.Unix())
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       title,
				Description: description.String() + "\n" + footer,
				Color:       utils.GoldColor,
			}},
		})
	}
}
