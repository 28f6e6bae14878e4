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
	"github.com/mapbot-dev/mapbot/mapbot/economy/gamble"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Gamble = discord.SlashCommandCreate{
	Name:        "gamble",
	Description: "Spin the slot machine",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionInt{
			Name:        "bet",
			Description: "Gold to bet (1 to 100)",
			Required:    true,
			MinValue:    intPtr(gamble.MinBet),
			MaxValue:    intPtr(gamble.MaxBet),
		},
	},
}

var SlotRewards = discord.SlashCommandCreate{
	Name:        "slotrewards",
	Description: "Show the slot machine payout table",
}

func GambleHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		bet := int64(e.SlashCommandInteractionData().Int("bet"))

		user, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username)
		if err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		// First-time gamblers confirm through a warning before any
		// gold moves.
		if !user.GamblingWarningShown {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{{
					Title:       "A word of warning",
					Description: "The house always wins in the long run. Gamble what you can afford to burn.\nThis warning is shown once.",
					Color:       utils.WarningColor,
				}},
				Components: []discord.ContainerComponent{
					discord.NewActionRow(
						discord.NewDangerButton("I understand, spin", fmt.Sprintf("/gamble/confirm/%d", bet)),
						discord.NewSecondaryButton("Never mind", "/gamble/cancel"),
					),
				},
				Flags: discord.MessageFlagEphemeral,
			})
		}

		result, err := b.Gamble.Play(ctx, userID, bet)
		if err != nil {
			return gambleError(e, err)
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{gambleEmbed(e.User().Username, bet, result)},
		})
	}
}

// GambleComponentHandler resolves the first-time warning buttons.
func GambleComponentHandler(b *mapbot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		data, ok := e.Data.(discord.ButtonInteractionData)
		if !ok {
			return fmt.Errorf("invalid interaction type")
		}

		action := strings.TrimPrefix(data.CustomID(), "/gamble/")
		if action == "cancel" {
			return e.UpdateMessage(discord.MessageUpdate{
				Embeds:     &[]discord.Embed{{Description: "Wise choice.", Color: utils.DefaultColor}},
				Components: &[]discord.ContainerComponent{},
			})
		}

		bet, err := strconv.ParseInt(strings.TrimPrefix(action, "confirm/"), 10, 64)
		if err != nil {
			return utils.ComponentError(e, "This spin is malformed. Run `/gamble` again.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if err = b.UserRepository.SetGamblingWarningShown(ctx, userID); err != nil {
			slog.Error("Failed to persist gambling warning flag", slog.Any("error", err))
		}

		result, err := b.Gamble.Play(ctx, userID, bet)
		if err != nil {
			var balanceErr *inventory.InsufficientBalanceError
			if errors.As(err, &balanceErr) {
				return utils.ComponentError(e, fmt.Sprintf("You need **%d** gold but only have **%d**.",
					balanceErr.Need, balanceErr.Have))
			}
			slog.Error("Gamble failed", slog.Any("error", err))
			return utils.ComponentError(e, "The machine jammed. Please try again.")
		}

		return e.UpdateMessage(discord.MessageUpdate{
			Embeds:     &[]discord.Embed{gambleEmbed(e.User().Username, bet, result)},
			Components: &[]discord.ContainerComponent{},
		})
	}
}

func gambleError(e *handler.CommandEvent, err error) error {
	var balanceErr *inventory.InsufficientBalanceError
	switch {
	case errors.As(err, &balanceErr):
		return utils.CreateError(e, fmt.Sprintf("You need **%d** gold but only have **%d**.",
			balanceErr.Need, balanceErr.Have))
	case errors.Is(err, gamble.ErrBetOutOfRange):
		return utils.CreateError(e, fmt.Sprintf("Bets run from %d to %d gold.", gamble.MinBet, gamble.MaxBet))
	default:
		slog.Error("Gamble failed", slog.Any("error", err))
		return utils.CreateError(e, "The machine jammed. Please try again.")
	}
}

func gambleEmbed(username string, bet int64, result *gamble.PlayResult) discord.Embed {
	reel := strings.Join(result.Symbols, " | ")
	if result.Won() {
		return discord.Embed{
			Title: "🎰 " + reel,
			Description: fmt.Sprintf("**%s** bet **%d** gold and won **%d** (×%d)!",
				username, bet, result.Winnings, result.Multiplier),
			Color: utils.GoldColor,
		}
	}
	return discord.Embed{
		Title:       "🎰 " + reel,
		Description: fmt.Sprintf("**%s** bet **%d** gold and the machine kept it.", username, bet),
		Color:       utils.ErrorColor,
	}
}

func SlotRewardsHandler(_ *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		var description strings.Builder
		for _, row := range gamble.RewardTable() {
			description.WriteString(fmt.Sprintf("%s → ×%d\n", row.Combo, row.Multiplier))
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "Slot machine payouts",
				Description: description.String(),
				Color:       utils.InfoColor,
			}},
		})
	}
}
