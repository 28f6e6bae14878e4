package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/upgrade"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Upgrade = discord.SlashCommandCreate{
	Name:        "upgrade",
	Description: "Attempt to upgrade a card's condition",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionString{
			Name:        "card",
			Description: "The card code to upgrade",
			Required:    true,
		},
	},
}

func UpgradeHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		cardID := strings.TrimSpace(e.SlashCommandInteractionData().String("card"))

		quote, err := b.Upgrades.GetQuote(ctx, userID, cardID)
		if err != nil {
			if errors.Is(err, upgrade.ErrTerminalCondition) {
				return utils.CreateError(e, "That card is already in mint condition.")
			}
			if errors.Is(err, cards.ErrCardNotFound) || errors.Is(err, cards.ErrNotOwner) {
				return utils.CreateError(e, "No card with that code in your collection.")
			}
			slog.Error("Upgrade quote failed", slog.Any("error", err))
			return utils.CreateError(e, "Failed to quote the upgrade. Please try again later.")
		}

		chance := int(quote.Condition.UpgradeChance * 100)
		warning := ""
		if quote.Previous != nil {
			warning = "\nA failed roll has a 50% chance of **downgrading** the card."
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "Upgrade this card?",
				Description: fmt.Sprintf("%s\n\n**%s → %s** for **%d** gold (%d%% success).%s",
					utils.FormatCardLine(quote.Card), quote.Condition.ID, quote.Next.ID, quote.Price, chance, warning),
				Color: utils.InfoColor,
			}},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewSuccessButton("⚒️ Upgrade",
						fmt.Sprintf("/upgrade/confirm/%s/%s/%d", quote.Card.ID, quote.Condition.ID, quote.Price)),
					discord.NewSecondaryButton("Cancel", "/upgrade/cancel"),
				),
			},
		})
	}
}

// quoteChanged reports whether the card moved tiers or was repriced
// since the quote shown on the confirm button was taken.
func quoteChanged(quote *upgrade.Quote, quotedTier string, quotedPrice int64) bool {
	return quote.Condition.ID != quotedTier || quote.Price != quotedPrice
}

func UpgradeComponentHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		action := strings.TrimPrefix(data.CustomID(), "/upgrade/")
		if action == "cancel" {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{{Description: "Upgrade cancelled.", Color: utils.DefaultColor}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		parts := strings.Split(strings.TrimPrefix(action, "confirm/"), "/")
		if len(parts) != 3 {
			return utils.ComponentError(e, "This upgrade offer is malformed.")
		}
		cardID, quotedTier := parts[0], parts[1]
		quotedPrice, perr := strconv.ParseInt(parts[2], 10, 64)
		if perr != nil {
			return utils.ComponentError(e, "This upgrade offer is malformed.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		quote, err := b.Upgrades.GetQuote(ctx, userID, cardID)
		if err == nil && quoteChanged(quote, quotedTier, quotedPrice) {
			err = upgrade.ErrStale
		}
		if err == nil {
			var result *upgrade.Result
			result, err = b.Upgrades.Attempt(ctx, userID, quote)
			if err == nil {
				return e.UpdateMessage(discord.MessageUpdate{
					Embeds:     &[]discord.Embed{upgradeResultEmbed(quote, result)},
					Components: &[]discord.ContainerComponent{},
				})
			}
		}

		var balanceErr *inventory.InsufficientBalanceError
		switch {
		case errors.As(err, &balanceErr):
			return utils.ComponentError(e, fmt.Sprintf("You need **%d** gold but only have **%d**.",
				balanceErr.Need, balanceErr.Have))
		case errors.Is(err, upgrade.ErrStale), errors.Is(err, upgrade.ErrTerminalCondition):
			return utils.ComponentError(e, "The card changed since the quote. Run the command again.")
		case errors.Is(err, cards.ErrCardNotFound), errors.Is(err, cards.ErrNotOwner):
			return utils.ComponentError(e, "That card is no longer yours to upgrade.")
		default:
			slog.Error("Upgrade failed",
				slog.String("user_id", userID),
				slog.String("card_id", cardID),
				slog.Any("error", err))
			return utils.ComponentError(e, "Failed to upgrade the card. Please try again.")
		}
	}
}

func upgradeResultEmbed(quote *upgrade.Quote, result *upgrade.Result) discord.Embed {
	switch {
	case result.Success:
		return discord.Embed{
			Title: "Upgrade succeeded!",
			Description: fmt.Sprintf("`#%s` is now in **%s** condition.",
				quote.Card.ID, result.NewCondition),
			Color: utils.SuccessColor,
		}
	case result.Downgraded:
		return discord.Embed{
			Title: "Upgrade backfired",
			Description: fmt.Sprintf("The roll failed and `#%s` slipped to **%s** condition.",
				quote.Card.ID, result.NewCondition),
			Color: utils.ErrorColor,
		}
	default:
		return discord.Embed{
			Title:       "Upgrade failed",
			Description: fmt.Sprintf("`#%s` survived unchanged. The gold did not.", quote.Card.ID),
			Color:       utils.WarningColor,
		}
	}
}
