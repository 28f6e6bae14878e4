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
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Inventory = discord.SlashCommandCreate{
	Name:        "inventory",
	Description: "Show your gold, dust and items",
}

func InventoryHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		entries, err := b.Inventory.ListItems(ctx, b.DB.BunDB(), userID)
		if err != nil {
			slog.Error("Failed to list inventory", slog.Any("error", err))
			return utils.CreateError(e, "Failed to load your inventory. Please try again later.")
		}

		var gold int64
		var description strings.Builder
		for _, entry := range entries {
			if entry.ItemID == models.ItemGold {
				gold = entry.Amount
				continue
			}
			name := entry.ItemID
			if entry.Item != nil {
				name = entry.Item.Name
			}
			description.WriteString(fmt.Sprintf("**%d** × %s\n", entry.Amount, name))
		}
		if description.Len() == 0 {
			description.WriteString("*no items*")
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       fmt.Sprintf("%s's inventory", e.User().Username),
				Description: fmt.Sprintf("💰 **%d** gold\n\n%s", gold, description.String()),
				Color:       utils.GoldColor,
			}},
		})
	}
}
