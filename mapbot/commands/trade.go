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

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/trade"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Trade = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Offer a one-for-one card trade to another user",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Who to trade with",
			Required:    true,
		},
		&discord.ApplicationCommandOptionString{
			Name:        "your_card",
			Description: "The card code you give away",
			Required:    true,
		},
		&discord.ApplicationCommandOptionString{
			Name:        "their_card",
			Description: "The card code you want in return",
			Required:    true,
		},
	},
}

func TradeHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		partner := data.User("user")
		myCard := strings.TrimSpace(data.String("your_card"))
		theirCard := strings.TrimSpace(data.String("their_card"))

		userID := e.User().ID.String()
		partnerID := partner.ID.String()
		if partnerID == userID {
			return utils.CreateError(e, "You cannot trade with yourself.")
		}
		if partner.Bot {
			return utils.CreateError(e, "Bots hold no cards worth having.")
		}

		// Validate both sides up front so the partner only sees
		// offers that can actually execute.
		if _, err := b.Cards.GetOwnedCard(ctx, b.DB.BunDB(), userID, myCard, false); err != nil {
			return cardLookupError(e, err)
		}
		if _, err := b.Cards.GetOwnedCard(ctx, b.DB.BunDB(), partnerID, theirCard, false); err != nil {
			if errors.Is(err, cards.ErrCardNotFound) || errors.Is(err, cards.ErrNotOwner) {
				return utils.CreateError(e, fmt.Sprintf("**%s** does not own a card with code `%s`.",
					partner.Username, theirCard))
			}
			return cardLookupError(e, err)
		}

		acceptID := fmt.Sprintf("/trade/accept/%s/%s/%s/%s",
			userID, partnerID, strings.ToLower(myCard), strings.ToLower(theirCard))
		declineID := fmt.Sprintf("/trade/decline/%s/%s", userID, partnerID)
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("<@%s>", partnerID),
			Embeds: []discord.Embed{{
				Title: "Trade offer",
				Description: fmt.Sprintf("**%s** offers their `#%s` for your `#%s`. Both of you must accept.",
					e.User().Username, strings.ToLower(myCard), strings.ToLower(theirCard)),
				Color: utils.InfoColor,
			}},
			Components: []discord.ContainerComponent{
				discord.NewActionRow(
					discord.NewSuccessButton("Accept", acceptID),
					discord.NewDangerButton("Decline", declineID),
				),
			},
		})
	}
}

// acceptStep classifies a press of the trade Accept button from the
// custom ID segments: initiator, partner, both card codes and, once one
// side accepted, the accepter's id.
type acceptStep int

const (
	stepMalformed acceptStep = iota
	stepNotParticipant
	stepFirstAccept
	stepAlreadyAccepted
	stepExecute
)

func classifyAccept(parts []string, presserID string) acceptStep {
	if len(parts) != 4 && len(parts) != 5 {
		return stepMalformed
	}
	if presserID != parts[0] && presserID != parts[1] {
		return stepNotParticipant
	}
	if len(parts) == 4 {
		return stepFirstAccept
	}
	if presserID == parts[4] {
		return stepAlreadyAccepted
	}
	return stepExecute
}

// TradeComponentHandler advances or declines a pending one-for-one
// offer. Both participants must press Accept before the swap runs; the
// first accept is carried on the button's custom ID. Strangers cannot
// press either button.
func TradeComponentHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		action := strings.TrimPrefix(data.CustomID(), "/trade/")
		presserID := e.User().ID.String()

		if rest, found := strings.CutPrefix(action, "decline/"); found {
			ids := strings.Split(rest, "/")
			if len(ids) != 2 {
				return utils.ComponentError(e, "This trade offer is malformed.")
			}
			if presserID != ids[0] && presserID != ids[1] {
				return utils.ComponentError(e, "This trade offer is between two other users.")
			}
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{{Description: "Trade declined.", Color: utils.DefaultColor}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		parts := strings.Split(strings.TrimPrefix(action, "accept/"), "/")
		step := classifyAccept(parts, presserID)
		if step == stepMalformed {
			return utils.ComponentError(e, "This trade offer is malformed.")
		}
		if step == stepNotParticipant {
			return utils.ComponentError(e, "This trade offer is between two other users.")
		}
		initiatorID, partnerID := parts[0], parts[1]
		initiatorCard, partnerCard := parts[2], parts[3]

		if step == stepFirstAccept {
			// First accept: note it on the button and wait for the
			// other side.
			other := initiatorID
			if presserID == initiatorID {
				other = partnerID
			}
			acceptID := fmt.Sprintf("/trade/accept/%s/%s/%s/%s/%s",
				initiatorID, partnerID, initiatorCard, partnerCard, presserID)
			declineID := fmt.Sprintf("/trade/decline/%s/%s", initiatorID, partnerID)
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds: &[]discord.Embed{{
					Description: fmt.Sprintf("**%s** accepted the swap of `#%s` for `#%s`. Waiting for <@%s> to accept.",
						e.User().Username, initiatorCard, partnerCard, other),
					Color: utils.InfoColor,
				}},
				Components: &[]discord.ContainerComponent{
					discord.NewActionRow(
						discord.NewSuccessButton("Accept", acceptID),
						discord.NewDangerButton("Decline", declineID),
					),
				},
			})
		}

		if step == stepAlreadyAccepted {
			return utils.ComponentError(e, "You already accepted. The other side has to press Accept.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := b.UserRepository.FindOrCreate(ctx, presserID, e.User().Username); err != nil {
			return utils.ComponentError(e, "Failed to load your profile. Please try again later.")
		}

		err := b.Trades.DirectTrade(ctx, initiatorID, initiatorCard, partnerID, partnerCard)
		if err != nil {
			switch {
			case errors.Is(err, trade.ErrOwnershipChanged),
				errors.Is(err, cards.ErrCardNotFound),
				errors.Is(err, cards.ErrNotOwner):
				return utils.ComponentError(e, "A card in this offer changed hands. The trade is off.")
			case errors.Is(err, cards.ErrCardInUse):
				return utils.ComponentError(e, "A card in this offer is on a job right now.")
			default:
				slog.Error("Direct trade failed",
					slog.String("initiator", initiatorID),
					slog.String("partner", partnerID),
					slog.Any("error", err))
				return utils.ComponentError(e, "Failed to execute the trade. Please try again.")
			}
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title: "Trade complete!",
				Description: fmt.Sprintf("`#%s` and `#%s` have swapped owners.",
					initiatorCard, partnerCard),
				Color: utils.SuccessColor,
			}},
			Components: &[]discord.ContainerComponent{},
		})
	}
}
