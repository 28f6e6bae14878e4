package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/uptrace/bun"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Burn = discord.SlashCommandCreate{
	Name:        "burn",
	Description: "Burn a card for gold and condition dust",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionString{
			Name:        "card",
			Description: "The card code to burn",
			Required:    true,
		},
	},
}

func BurnHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		cardID := strings.TrimSpace(e.SlashCommandInteractionData().String("card"))

		card, err := b.Cards.GetOwnedCard(ctx, b.DB.BunDB(), userID, cardID, false)
		if err != nil {
			return cardLookupError(e, err)
		}
		if usage, err := b.Cards.CardUsage(ctx, b.DB.BunDB(), card.ID); err != nil {
			return utils.CreateError(e, "Failed to check the card. Please try again later.")
		} else if usage != "" {
			return utils.CreateError(e, "That card is on a job right now. Unassign it first.")
		}

		dust := models.DustValue(card.Mapper.Rarity)
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "Burn this card?",
				Description: fmt.Sprintf("%s\n\nYou will receive **%d** gold and **%d** %s.",
					utils.FormatCardLine(card), card.BurnValue, dust, models.DustType(card.ConditionID)),
				Color: utils.WarningColor,
			}},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewDangerButton("🔥 Burn", "/burn/confirm/"+card.ID),
					discord.NewSecondaryButton("Cancel", "/burn/cancel"),
				),
			},
		})
	}
}

// BurnComponentHandler resolves the burn confirmation buttons.
func BurnComponentHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		action := strings.TrimPrefix(data.CustomID(), "/burn/")
		if action == "cancel" {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{{Description: "Burn cancelled.", Color: utils.DefaultColor}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		cardID := strings.TrimPrefix(action, "confirm/")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		var result *cards.BurnResult
		err := b.DB.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
			card, err := b.Cards.GetOwnedCard(ctx, tx, userID, cardID, true)
			if err != nil {
				return err
			}
			usage, err := b.Cards.CardUsage(ctx, tx, card.ID)
			if err != nil {
				return err
			}
			if usage != "" {
				return cards.ErrCardInUse
			}
			result, err = b.Cards.Burn(ctx, tx, userID, card)
			return err
		})
		if err != nil {
			switch {
			case errors.Is(err, cards.ErrCardNotFound), errors.Is(err, cards.ErrNotOwner):
				return utils.ComponentError(e, "That card is no longer yours to burn.")
			case errors.Is(err, cards.ErrCardInUse):
				return utils.ComponentError(e, "That card is on a job right now.")
			default:
				slog.Error("Burn failed",
					slog.String("user_id", userID),
					slog.String("card_id", cardID),
					slog.Any("error", err))
				return utils.ComponentError(e, "Failed to burn the card. Please try again.")
			}
		}

		b.EventLog.Log(ctx, userID, e.User().Username, "card_burned", map[string]any{
			"card_id": result.Card.ID,
			"gold":    result.Gold,
			"dust":    result.DustValue,
		})

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title: "Card burned",
				Description: fmt.Sprintf("%s went up in flames for **%d** gold and **%d** %s.",
					utils.FormatCardLine(result.Card), result.Gold, result.DustValue, result.DustType),
				Color: utils.SuccessColor,
			}},
			Components: &[]discord.ContainerComponent{},
		})
	}
}

func cardLookupError(e *handler.CommandEvent, err error) error {
	switch {
	case errors.Is(err, cards.ErrCardNotFound):
		return utils.CreateError(e, "No card with that code in your collection.")
	case errors.Is(err, cards.ErrNotOwner):
		return utils.CreateError(e, "That card belongs to someone else.")
	default:
		slog.Error("Card lookup failed", slog.Any("error", err))
		return utils.CreateError(e, "Failed to look up the card. Please try again later.")
	}
}
