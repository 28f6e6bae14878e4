package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/economy/items"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Use = discord.SlashCommandCreate{
	Name:        "use",
	Description: "Use a consumable item from your inventory",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionString{
			Name:         "item",
			Description:  "The item to use",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func UseHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		itemID := strings.ToLower(strings.TrimSpace(e.SlashCommandInteractionData().String("item")))

		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		if err := e.DeferCreateMessage(false); err != nil {
			return fmt.Errorf("failed to defer response: %w", err)
		}

		result, err := b.Items.Use(ctx, userID, itemID)
		if err != nil {
			switch {
			case errors.Is(err, items.ErrNoItem):
				return utils.UpdateError(e, "You do not own that item.")
			case errors.Is(err, items.ErrNotUsable):
				return utils.UpdateError(e, "That item cannot be used directly.")
			default:
				slog.Error("Item use failed",
					slog.String("user_id", userID),
					slog.String("item_id", itemID),
					slog.Any("error", err))
				return utils.UpdateError(e, "Failed to use the item. Please try again later.")
			}
		}

		if result.Superdrop != nil {
			embed, components := buildDropMessage(e.User().Username, result.Superdrop.Cards)
			embed.Title = fmt.Sprintf("💥 %s unleashed a superdrop!", e.User().Username)
			files := renderDropFrames(ctx, b, result.Superdrop)
			_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{embed},
				Components: &[]discord.ContainerComponent{components},
				Files:      files,
			})
			return err
		}

		description := fmt.Sprintf("Used one **%s**.", result.ItemID)
		if result.EffectUntil != nil {
			description = fmt.Sprintf("Used one **%s**. The effect runs until <t:%d:t>.",
				result.ItemID, result.EffectUntil.Unix())
		}
		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Description: description,
				Color:       utils.SuccessColor,
			}},
		})
		return err
	}
}

// UseAutocompleteHandler suggests usable items the user actually owns.
func UseAutocompleteHandler(b *mapbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "item" {
			return nil
		}

		searchTerm := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err == nil {
				searchTerm = strings.TrimSpace(s)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		entries, err := b.Inventory.ListItems(ctx, b.DB.BunDB(), e.User().ID.String())
		if err != nil {
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}

		usable := make([]*discord.AutocompleteChoiceString, 0, len(entries))
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Item == nil || !entry.Item.Usable {
				continue
			}
			usable = append(usable, &discord.AutocompleteChoiceString{
				Name:  fmt.Sprintf("%s (×%d)", entry.Item.Name, entry.Amount),
				Value: entry.ItemID,
			})
			names = append(names, entry.Item.Name)
		}

		choices := make([]discord.AutocompleteChoice, 0, len(usable))
		if searchTerm == "" {
			for _, choice := range usable {
				choices = append(choices, *choice)
			}
		} else {
			for _, match := range fuzzy.Find(searchTerm, names) {
				choices = append(choices, *usable[match.Index])
			}
		}
		if len(choices) > 25 {
			choices = choices[:25]
		}
		return e.AutocompleteResult(choices)
	}
}
