package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Settings = discord.SlashCommandCreate{
	Name:        "settings",
	Description: "Bot settings for this server and for you",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "channel",
			Description: "Pin card drops to one channel (requires Manage Server)",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionChannel{
					Name:        "channel",
					Description: "The channel to use",
					Required:    true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "reminders",
			Description: "Toggle the drop cooldown DM reminder",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionBool{
					Name:        "enabled",
					Description: "Whether to DM you when your drop is ready",
					Required:    true,
				},
			},
		},
	},
}

func SettingsHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "channel":
			return handleSettingsChannel(ctx, b, e)
		case "reminders":
			return handleSettingsReminders(ctx, b, e)
		default:
			return utils.CreateError(e, "Unknown subcommand.")
		}
	}
}

func handleSettingsChannel(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	if e.GuildID() == nil {
		return utils.CreateError(e, "This setting only exists inside a server.")
	}
	member := e.Member()
	if member == nil || !member.Permissions.Has(discord.PermissionManageGuild) {
		return utils.CreateError(e, "You need the Manage Server permission for that.")
	}

	channel := e.SlashCommandInteractionData().Channel("channel")
	if err := b.GuildSettingsRepository.SetChannel(ctx, e.GuildID().String(), channel.ID.String()); err != nil {
		slog.Error("Failed to set guild channel", slog.Any("error", err))
		return utils.CreateError(e, "Failed to save the setting. Please try again later.")
	}
	return utils.CreateSuccess(e, "Channel set",
		fmt.Sprintf("Card drops now live in <#%s>.", channel.ID))
}

func handleSettingsReminders(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	userID := e.User().ID.String()
	enabled := e.SlashCommandInteractionData().Bool("enabled")

	if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
		return utils.CreateError(e, "Failed to load your profile. Please try again later.")
	}
	if err := b.UserRepository.SetReminderEnabled(ctx, userID, enabled); err != nil {
		slog.Error("Failed to set reminder preference", slog.Any("error", err))
		return utils.CreateError(e, "Failed to save the setting. Please try again later.")
	}

	if enabled {
		return utils.CreateSuccess(e, "Reminders on", "You will get a DM whenever your drop cooldown lapses.")
	}
	return utils.CreateSuccess(e, "Reminders off", "No more cooldown DMs.")
}
