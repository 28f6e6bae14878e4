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
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/trade"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Multitrade = discord.SlashCommandCreate{
	Name:        "multitrade",
	Description: "Negotiate a multi-card, multi-item trade session",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Invite another user to a trade session",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Who to trade with",
					Required:    true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "add-card",
			Description: "Add one of your cards to the session",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:        "card",
					Description: "The card code to offer",
					Required:    true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "remove-card",
			Description: "Remove one of your offered cards",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:        "card",
					Description: "The card code to withdraw",
					Required:    true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "add-item",
			Description: "Add items or gold to the session",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:        "item",
					Description: "The item to offer",
					Required:    true,
				},
				&discord.ApplicationCommandOptionInt{
					Name:        "quantity",
					Description: "How many to offer",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "remove-item",
			Description: "Withdraw offered items",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:        "item",
					Description: "The item to withdraw",
					Required:    true,
				},
				&discord.ApplicationCommandOptionInt{
					Name:        "quantity",
					Description: "How many to withdraw",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show the current session state",
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "accept",
			Description: "Accept the session as it stands",
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "cancel",
			Description: "Cancel the session",
		},
	},
}

func intPtr(v int) *int {
	return &v
}

func MultitradeHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "start":
			return handleTradeStart(ctx, b, e)
		case "add-card":
			_, err := b.Trades.AddCard(ctx, userID, strings.TrimSpace(data.String("card")))
			return respondSession(ctx, b, e, userID, err)
		case "remove-card":
			_, err := b.Trades.RemoveCard(ctx, userID, strings.TrimSpace(data.String("card")))
			return respondSession(ctx, b, e, userID, err)
		case "add-item":
			_, err := b.Trades.AddItem(ctx, userID, strings.TrimSpace(data.String("item")), int64(data.Int("quantity")))
			return respondSession(ctx, b, e, userID, err)
		case "remove-item":
			_, err := b.Trades.RemoveItem(ctx, userID, strings.TrimSpace(data.String("item")), int64(data.Int("quantity")))
			return respondSession(ctx, b, e, userID, err)
		case "show":
			return respondSession(ctx, b, e, userID, nil)
		case "accept":
			return handleTradeAccept(ctx, b, e)
		case "cancel":
			if err := b.Trades.CancelSession(ctx, userID); err != nil {
				return tradeError(e, err)
			}
			return utils.CreateSuccess(e, "Session cancelled", "The trade session and all offers are gone.")
		default:
			return utils.CreateError(e, "Unknown subcommand.")
		}
	}
}

func handleTradeStart(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	partner := e.SlashCommandInteractionData().User("user")
	userID := e.User().ID.String()
	partnerID := partner.ID.String()

	if partnerID == userID {
		return utils.CreateError(e, "You cannot trade with yourself.")
	}
	if partner.Bot {
		return utils.CreateError(e, "Bots hold no cards worth having.")
	}

	if _, err := b.UserRepository.FindOrCreate(ctx, partnerID, partner.Username); err != nil {
		return utils.CreateError(e, "Failed to load the partner's profile. Please try again later.")
	}

	return e.CreateMessage(discord.MessageCreate{
		Content: fmt.Sprintf("<@%s>", partnerID),
		Embeds: []discord.Embed{{
			Title:       "Trade invitation",
			Description: fmt.Sprintf("**%s** wants to open a trade session with you.", e.User().Username),
			Color:       utils.InfoColor,
		}},
		Components: []discord.ContainerComponent{
			discord.NewActionRow(
				discord.NewSuccessButton("Open session", fmt.Sprintf("/multitrade/open/%s/%s", userID, partnerID)),
				discord.NewDangerButton("Decline", "/multitrade/decline"),
			),
		},
	})
}

func handleTradeAccept(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	userID := e.User().ID.String()
	state, err := b.Trades.Accept(ctx, userID)
	if err != nil {
		return tradeError(e, err)
	}

	if !state.BothAccepted {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Description: fmt.Sprintf("**%s** accepted. Waiting for <@%s> to accept the same offer set.",
					e.User().Username, state.Session.Counterparty(userID)),
				Color: utils.InfoColor,
			}},
		})
	}

	if err = b.Trades.Execute(ctx, state.Session.ID); err != nil {
		return tradeError(e, err)
	}
	return utils.CreateSuccess(e, "Trade executed!",
		"All offered cards and items have changed hands.")
}

// MultitradeComponentHandler resolves the session invitation buttons.
func MultitradeComponentHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		action := strings.TrimPrefix(data.CustomID(), "/multitrade/")
		if action == "decline" {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{{Description: "Invitation declined.", Color: utils.DefaultColor}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		parts := strings.Split(strings.TrimPrefix(action, "open/"), "/")
		if len(parts) != 2 {
			return utils.ComponentError(e, "This invitation is malformed.")
		}
		initiatorID, partnerID := parts[0], parts[1]
		if e.User().ID.String() != partnerID {
			return utils.ComponentError(e, "This invitation is for someone else.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		session, err := b.Trades.StartSession(ctx, initiatorID, partnerID, e.ChannelID().String(),
			func(context.Context) (bool, error) { return true, nil })
		if err != nil {
			switch {
			case errors.Is(err, trade.ErrSessionExists), errors.Is(err, trade.ErrPartnerInSession):
				return utils.ComponentError(e, "One of you is already in an active trade session.")
			default:
				slog.Error("Failed to start trade session", slog.Any("error", err))
				return utils.ComponentError(e, "Failed to open the session. Please try again.")
			}
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title: "Trade session open",
				Description: fmt.Sprintf("Session #%d between <@%s> and <@%s>.\nUse `/multitrade add-card` and `/multitrade add-item`, then `/multitrade accept`.",
					session.ID, session.User1ID, session.User2ID),
				Color: utils.SuccessColor,
			}},
			Components: &[]discord.ContainerComponent{},
		})
	}
}

// respondSession shows the fresh session state after a mutation.
func respondSession(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent, userID string, err error) error {
	if err != nil {
		return tradeError(e, err)
	}
	session, err := b.Trades.ActiveSession(ctx, userID)
	if err != nil {
		return tradeError(e, err)
	}
	if session == nil {
		return tradeError(e, trade.ErrNoSession)
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{sessionEmbed(session)},
	})
}

func sessionEmbed(session *models.TradeSession) discord.Embed {
	sideName := func(userID string) string {
		if session.User1 != nil && session.User1.ID == userID {
			return session.User1.Username
		}
		if session.User2 != nil && session.User2.ID == userID {
			return session.User2.Username
		}
		return userID
	}

	sides := map[string]*strings.Builder{
		session.User1ID: {},
		session.User2ID: {},
	}
	for _, offer := range session.Offers {
		sb := sides[offer.UserID]
		if sb == nil {
			continue
		}
		switch offer.Type {
		case models.OfferTypeCard:
			if offer.Card != nil {
				sb.WriteString(utils.FormatCardLine(offer.Card) + "\n")
			} else if offer.CardID != nil {
				sb.WriteString(fmt.Sprintf("`#%s`\n", *offer.CardID))
			}
		case models.OfferTypeItem:
			if offer.ItemID != nil {
				sb.WriteString(fmt.Sprintf("**%d** × %s\n", offer.Quantity, *offer.ItemID))
			}
		}
	}

	fields := make([]discord.EmbedField, 0, 2)
	for _, userID := range []string{session.User1ID, session.User2ID} {
		value := sides[userID].String()
		if value == "" {
			value = "*nothing yet*"
		}
		fields = append(fields, discord.EmbedField{
			Name:  sideName(userID) + " offers",
			Value: value,
		})
	}

	return discord.Embed{
		Title:       fmt.Sprintf("Trade session #%d", session.ID),
		Fields:      fields,
		Color:       utils.InfoColor,
		Description: "Any change voids earlier accepts. Both sides must `/multitrade accept` the same offer set.",
	}
}

func tradeError(e *handler.CommandEvent, err error) error {
	switch {
	case errors.Is(err, trade.ErrNoSession):
		return utils.CreateError(e, "You are not in an active trade session. Start one with `/multitrade start`.")
	case errors.Is(err, trade.ErrSelfTrade):
		return utils.CreateError(e, "You cannot trade with yourself.")
	case errors.Is(err, trade.ErrSessionExists), errors.Is(err, trade.ErrPartnerInSession):
		return utils.CreateError(e, "One of you is already in an active trade session.")
	case errors.Is(err, trade.ErrDuplicateOffer):
		return utils.CreateError(e, "That card is already on the table.")
	case errors.Is(err, trade.ErrOfferNotFound):
		return utils.CreateError(e, "No matching offer of yours in this session.")
	case errors.Is(err, trade.ErrNotEnoughItems):
		return utils.CreateError(e, "You do not own enough of that item.")
	case errors.Is(err, trade.ErrOwnershipChanged):
		return utils.CreateError(e, "An offer no longer checks out, a card or item moved. The accepts were voided.")
	case errors.Is(err, trade.ErrAcceptsVoided):
		return utils.CreateError(e, "The offer set changed after the accepts. Review it and accept again.")
	case errors.Is(err, cards.ErrCardNotFound), errors.Is(err, cards.ErrNotOwner):
		return utils.CreateError(e, "No card with that code in your collection.")
	case errors.Is(err, cards.ErrCardInUse):
		return utils.CreateError(e, "That card is on a job right now.")
	default:
		slog.Error("Trade session operation failed", slog.Any("error", err))
		return utils.CreateError(e, "The trade operation failed. Please try again.")
	}
}
