package commands

import (
	"bytes"
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
	"github.com/mapbot-dev/mapbot/mapbot/economy/drops"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Drop = discord.SlashCommandCreate{
	Name:        "drop",
	Description: "Drop a fresh set of mapper cards for anyone to claim",
}

func DropHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		user, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username)
		if err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		if err = e.DeferCreateMessage(false); err != nil {
			return fmt.Errorf("failed to defer response: %w", err)
		}

		result, err := b.Drops.Drop(ctx, userID)
		if err != nil {
			var cooldownErr *drops.CooldownError
			if errors.As(err, &cooldownErr) {
				return utils.UpdateError(e, fmt.Sprintf("Your drop is on cooldown for another **%s**.",
					utils.FormatDuration(cooldownErr.View.Remaining)))
			}
			if errors.Is(err, drops.ErrNoMappers) {
				return utils.UpdateError(e, "No mappers are available to drop right now.")
			}
			slog.Error("Drop failed",
				slog.String("user_id", userID),
				slog.Any("error", err))
			return utils.UpdateError(e, "Something went wrong with your drop. Please try again later.")
		}

		if user.ReminderEnabled {
			scheduleDropReminder(b, userID)
		}

		embed, components := buildDropMessage(e.User().Username, result.Cards)
		files := renderDropFrames(ctx, b, result)

		msg := discord.MessageUpdate{
			Embeds:     &[]discord.Embed{embed},
			Components: &[]discord.ContainerComponent{components},
			Files:      files,
		}
		if _, err = e.UpdateInteractionResponse(msg); err != nil {
			return err
		}

		postSettingsHintIfFirst(ctx, b, e)
		return nil
	}
}

// buildDropMessage lists the dropped cards with one claim button each.
func buildDropMessage(username string, cards []*models.Card) (discord.Embed, discord.ContainerComponent) {
	var description strings.Builder
	for _, card := range cards {
		description.WriteString(utils.FormatCardLine(card) + "\n")
	}
	description.WriteString("\nClaim a card before the minute runs out!")

	embed := discord.Embed{
		Title:       fmt.Sprintf("%s dropped %d cards!", username, len(cards)),
		Description: description.String(),
		Color:       utils.InfoColor,
	}

	buttons := make([]discord.InteractiveComponent, 0, len(cards))
	for _, card := range cards {
		buttons = append(buttons, discord.NewPrimaryButton("#"+card.ID, "/claim/"+card.ID))
	}
	return embed, discord.NewActionRow(buttons...)
}

// renderDropFrames renders card art as attachments. Rendering is best
// effort, a failure drops the images but never the drop itself.
func renderDropFrames(ctx context.Context, b *mapbot.Bot, result *drops.DropResult) []*discord.File {
	if b.Renderer == nil {
		return nil
	}
	frames, err := b.Renderer.RenderCards(ctx, result.Cards)
	if err != nil {
		slog.Warn("Failed to render drop frames", slog.Any("error", err))
		return nil
	}
	files := make([]*discord.File, 0, len(frames))
	for i, frame := range frames {
		files = append(files, &discord.File{
			Name:   fmt.Sprintf("card_%s.png", result.Cards[i].ID),
			Reader: bytes.NewReader(frame),
		})
	}
	return files
}

func scheduleDropReminder(b *mapbot.Bot, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	view, err := b.Timeouts.Get(ctx, b.DB.BunDB(), userID, timeout.TypeDrop, false)
	if err != nil || view.ActualRemaining <= 0 {
		return
	}
	b.Reminders.Schedule(context.Background(), userID, view.ActualRemaining)
}

// postSettingsHintIfFirst posts a one-time nudge towards /settings in
// guilds that never configured a bot channel.
func postSettingsHintIfFirst(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) {
	guildID := e.GuildID()
	if guildID == nil {
		return
	}

	first, err := b.GuildSettingsRepository.MarkSettingsHintPosted(ctx, guildID.String())
	if err != nil || !first {
		return
	}

	_, err = e.CreateFollowupMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: "Tip: an admin can pin card drops to one channel with `/settings channel`.",
			Color:       utils.DefaultColor,
		}},
	})
	if err != nil {
		slog.Debug("Failed to post settings hint", slog.Any("error", err))
	}
}
