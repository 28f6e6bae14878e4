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
	"github.com/mapbot-dev/mapbot/mapbot/economy/drops"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

// ClaimButtonHandler resolves the claim buttons attached to a drop.
func ClaimButtonHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}
		cardID := strings.TrimPrefix(data.CustomID(), "/claim/")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.ComponentError(e, "Failed to load your profile. Please try again later.")
		}

		result, err := b.Drops.Claim(ctx, userID, cardID)
		if err != nil {
			return claimError(e, err)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{claimEmbed(e.User().Username, result)},
		})
	}
}

func claimError(e *handler.ComponentEvent, err error) error {
	var cooldownErr *drops.CooldownError
	switch {
	case errors.As(err, &cooldownErr):
		return utils.ComponentError(e, fmt.Sprintf("Your claim is on cooldown for another **%s**.",
			utils.FormatDuration(cooldownErr.View.Remaining)))
	case errors.Is(err, drops.ErrCardExpired):
		return utils.ComponentError(e, "Too late, that card can no longer be claimed.")
	case errors.Is(err, drops.ErrCardNotFound):
		return utils.ComponentError(e, "That card no longer exists.")
	default:
		slog.Error("Claim failed", slog.Any("error", err))
		return utils.ComponentError(e, "Something went wrong with your claim. Please try again.")
	}
}

func claimEmbed(username string, result *drops.ClaimResult) discord.Embed {
	line := utils.FormatCardLine(result.Card)

	switch result.Outcome {
	case drops.OutcomeClaimed:
		return discord.Embed{
			Title:       "Card claimed!",
			Description: fmt.Sprintf("**%s** claimed %s", username, line),
			Color:       utils.SuccessColor,
		}
	case drops.OutcomeAlreadyOwn:
		return discord.Embed{
			Description: fmt.Sprintf("**%s**, that card is already yours: %s", username, line),
			Color:       utils.InfoColor,
		}
	case drops.OutcomeAlreadyClaimed:
		owner := "someone else"
		if result.Card.Owner != nil {
			owner = result.Card.Owner.Username
		}
		return discord.Embed{
			Description: fmt.Sprintf("Too slow, **%s** already took %s", owner, line),
			Color:       utils.WarningColor,
		}
	case drops.OutcomeStealWon:
		prev := "the dropper"
		if result.PreviousOwner != nil {
			prev = result.PreviousOwner.Username
		}
		return discord.Embed{
			Title:       "Card stolen!",
			Description: fmt.Sprintf("**%s** snatched %s right from under **%s**!", username, line, prev),
			Color:       utils.SuccessColor,
		}
	case drops.OutcomeStealLost:
		return discord.Embed{
			Description: fmt.Sprintf("**%s** tried to steal %s and fumbled. The card stays put.", username, line),
			Color:       utils.WarningColor,
		}
	default:
		return discord.Embed{
			Description: line,
			Color:       utils.DefaultColor,
		}
	}
}
