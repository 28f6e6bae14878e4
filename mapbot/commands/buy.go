package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/items"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Buy = discord.SlashCommandCreate{
	Name:        "buy",
	Description: "Buy an item from the shop",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionString{
			Name:         "item",
			Description:  "The item to buy",
			Required:     true,
			Autocomplete: true,
		},
		&discord.ApplicationCommandOptionInt{
			Name:        "quantity",
			Description: "How many to buy",
			MinValue:    intPtr(1),
		},
	},
}

func BuyHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		itemID := strings.ToLower(strings.TrimSpace(data.String("item")))
		quantity := int64(1)
		if q, ok := data.OptInt("quantity"); ok {
			quantity = int64(q)
		}

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		item, err := b.Items.ShopItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, items.ErrNotForSale) {
				return utils.CreateError(e, "The shop does not sell that.")
			}
			slog.Error("Shop lookup failed", slog.Any("error", err))
			return utils.CreateError(e, "Failed to look the item up. Please try again later.")
		}

		total := item.ShopPrice * quantity
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "Confirm purchase",
				Description: fmt.Sprintf("Buy **%d** × **%s** for **%d** gold?",
					quantity, item.Name, total),
				Color: utils.InfoColor,
			}},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewSuccessButton("Buy",
						fmt.Sprintf("/buy/confirm/%s/%d/%d", item.ID, quantity, total)),
					discord.NewSecondaryButton("Cancel", "/buy/cancel"),
				),
			},
		})
	}
}

func BuyComponentHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		action := strings.TrimPrefix(data.CustomID(), "/buy/")
		if action == "cancel" {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{{Description: "Purchase cancelled.", Color: utils.DefaultColor}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		parts := strings.Split(strings.TrimPrefix(action, "confirm/"), "/")
		if len(parts) != 3 {
			return utils.ComponentError(e, "This purchase offer is malformed.")
		}
		itemID := parts[0]
		quantity, qerr := strconv.ParseInt(parts[1], 10, 64)
		quotedTotal, terr := strconv.ParseInt(parts[2], 10, 64)
		if qerr != nil || terr != nil || quantity <= 0 {
			return utils.ComponentError(e, "This purchase offer is malformed.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		item, err := b.Items.ShopItem(ctx, itemID)
		if err == nil && item.ShopPrice*quantity != quotedTotal {
			// Repriced since the embed; make the buyer look again.
			return utils.ComponentError(e, "The price changed since this offer. Run `/buy` again.")
		}

		var receipt *items.Receipt
		if err == nil {
			receipt, err = b.Items.Buy(ctx, userID, itemID, quantity)
		}
		if err != nil {
			var balanceErr *inventory.InsufficientBalanceError
			switch {
			case errors.As(err, &balanceErr):
				return utils.ComponentError(e, fmt.Sprintf("You need **%d** gold but only have **%d**.",
					balanceErr.Need, balanceErr.Have))
			case errors.Is(err, items.ErrNotForSale):
				return utils.ComponentError(e, "The shop does not sell that.")
			default:
				slog.Error("Purchase failed",
					slog.String("user_id", userID),
					slog.String("item_id", itemID),
					slog.Any("error", err))
				return utils.ComponentError(e, "Failed to complete the purchase. Please try again.")
			}
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Description: fmt.Sprintf("Bought **%d** × **%s** for **%d** gold.",
					receipt.Quantity, receipt.Item.Name, receipt.TotalGold),
				Color: utils.SuccessColor,
			}},
			Components: &[]discord.ContainerComponent{},
		})
	}
}

// BuyAutocompleteHandler suggests the shop catalog with prices.
func BuyAutocompleteHandler(b *mapbot.Bot) handler.AutocompleteHandler {
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

		catalog, err := b.Items.ListShopItems(ctx)
		if err != nil {
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}

		all := make([]*discord.AutocompleteChoiceString, 0, len(catalog))
		names := make([]string, 0, len(catalog))
		for _, item := range catalog {
			all = append(all, &discord.AutocompleteChoiceString{
				Name:  fmt.Sprintf("%s (%d gold)", item.Name, item.ShopPrice),
				Value: item.ID,
			})
			names = append(names, item.Name)
		}

		choices := make([]discord.AutocompleteChoice, 0, len(all))
		if searchTerm == "" {
			for _, choice := range all {
				choices = append(choices, *choice)
			}
		} else {
			for _, match := range fuzzy.Find(searchTerm, names) {
				choices = append(choices, *all[match.Index])
			}
		}
		if len(choices) > 25 {
			choices = choices[:25]
		}
		return e.AutocompleteResult(choices)
	}
}
