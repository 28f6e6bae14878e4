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
	"github.com/mapbot-dev/mapbot/mapbot/economy/jobs"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Jobs = discord.SlashCommandCreate{
	Name:        "jobs",
	Description: "Send your cards to work for gold",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "board",
			Description: "Show your four job slots",
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "assign",
			Description: "Put a card into a job slot",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:        "slot",
					Description: "Which slot",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "a", Value: "a"},
						{Name: "b", Value: "b"},
						{Name: "c", Value: "c"},
						{Name: "d", Value: "d"},
					},
				},
				&discord.ApplicationCommandOptionString{
					Name:        "card",
					Description: "The card code to assign",
					Required:    true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "work",
			Description: "Start a shift on every idle assigned slot",
		},
	},
}

func JobsHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "board":
			return handleJobBoard(ctx, b, e)
		case "assign":
			return handleJobAssign(ctx, b, e)
		case "work":
			return handleJobWork(ctx, b, e)
		default:
			return utils.CreateError(e, "Unknown subcommand.")
		}
	}
}

func handleJobBoard(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	board, err := b.Jobs.Board(ctx, e.User().ID.String())
	if err != nil {
		slog.Error("Failed to load job board", slog.Any("error", err))
		return utils.CreateError(e, "Failed to load your job board. Please try again later.")
	}

	now := time.Now()
	var description strings.Builder
	for _, entry := range board {
		description.WriteString(fmt.Sprintf("**Slot %s** · %s\n", entry.Slot, jobSlotLine(entry, now)))
	}

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "Job board",
			Description: description.String(),
			Color:       utils.InfoColor,
		}},
	})
}

func jobSlotLine(entry jobs.BoardEntry, now time.Time) string {
	if entry.Assignment == nil || entry.Card == nil {
		return "*empty*"
	}

	card := entry.Card
	state := "idle"
	if entry.Assignment.IsActive() {
		remaining := entry.Assignment.TimeRemaining(now)
		if remaining > 0 {
			state = fmt.Sprintf("working, %s left (%d%%)",
				utils.FormatDuration(remaining), int(entry.Assignment.Progress(now)*100))
		} else {
			state = "finishing up"
		}
	}

	mood := fmt.Sprintf("motivation %d/10", card.JobMotivation)
	if card.Mindblocked(now) {
		mood += ", mindblocked"
	}
	return fmt.Sprintf("%s · %s · %s", utils.FormatCardLine(card), state, mood)
}

func handleJobAssign(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	data := e.SlashCommandInteractionData()
	slot := data.String("slot")
	cardID := strings.TrimSpace(data.String("card"))

	card, err := b.Jobs.Assign(ctx, e.User().ID.String(), slot, cardID)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrInvalidSlot):
			return utils.CreateError(e, "Slots are named a, b, c and d.")
		case errors.Is(err, jobs.ErrAlreadyAssigned):
			return utils.CreateError(e, "That card already sits in a slot.")
		case errors.Is(err, jobs.ErrSlotActive):
			return utils.CreateError(e, "That slot is mid-shift. Wait for it to finish.")
		case errors.Is(err, cards.ErrCardNotFound), errors.Is(err, cards.ErrNotOwner):
			return utils.CreateError(e, "No card with that code in your collection.")
		default:
			slog.Error("Job assign failed", slog.Any("error", err))
			return utils.CreateError(e, "Failed to assign the card. Please try again later.")
		}
	}

	return utils.CreateSuccess(e, "Card assigned",
		fmt.Sprintf("%s now fills slot **%s**. Start a shift with `/jobs work`.",
			utils.FormatCardLine(card), slot))
}

func handleJobWork(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	guildID := ""
	if e.GuildID() != nil {
		guildID = e.GuildID().String()
	}

	started, err := b.Jobs.Work(ctx, e.User().ID.String(), guildID, e.ChannelID().String())
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrNoAssignments):
			return utils.CreateError(e, "No cards assigned yet. Use `/jobs assign` first.")
		case errors.Is(err, jobs.ErrAllBusy):
			return utils.CreateError(e, "Every assigned card is already mid-shift.")
		default:
			slog.Error("Job work failed", slog.Any("error", err))
			return utils.CreateError(e, "Failed to start the shift. Please try again later.")
		}
	}

	return utils.CreateSuccess(e, "Shift started",
		fmt.Sprintf("**%d** card(s) clocked in. You will be pinged here when they finish.", started))
}
