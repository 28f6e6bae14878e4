package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/database/repositories"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

// maxArtSize caps uploaded avatar art. Discord CDN attachments above
// this are rejected before any download happens.
const maxArtSize = 8 * 1024 * 1024

var artClient = &http.Client{Timeout: 30 * time.Second}

var MapperArt = discord.SlashCommandCreate{
	Name:        "mapperart",
	Description: "Manage the avatar art printed on a mapper's cards (requires Manage Server)",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Upload new avatar art for a mapper",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:         "mapper",
					Description:  "The mapper's name",
					Required:     true,
					Autocomplete: true,
				},
				&discord.ApplicationCommandOptionAttachment{
					Name:        "image",
					Description: "PNG or JPEG image",
					Required:    true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "clear",
			Description: "Remove a mapper's avatar art",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:         "mapper",
					Description:  "The mapper's name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
	},
}

func MapperArtHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		member := e.Member()
		if member == nil || !member.Permissions.Has(discord.PermissionManageGuild) {
			return utils.CreateError(e, "You need the Manage Server permission for that.")
		}
		if b.Spaces == nil {
			return utils.CreateError(e, "Art storage is not configured on this bot.")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		data := e.SlashCommandInteractionData()
		mapper, err := b.MapperRepository.GetByUsername(ctx, strings.TrimSpace(data.String("mapper")))
		if err != nil {
			var notFound *repositories.NotFoundError
			if errors.As(err, &notFound) {
				return utils.CreateError(e, fmt.Sprintf("No mapper named **%s** exists.", data.String("mapper")))
			}
			slog.Error("Mapper art lookup failed", slog.Any("error", err))
			return utils.CreateError(e, "Failed to look up the mapper. Please try again later.")
		}

		switch *data.SubCommandName {
		case "set":
			return handleArtSet(ctx, b, e, mapper)
		case "clear":
			return handleArtClear(ctx, b, e, mapper)
		default:
			return utils.CreateError(e, "Unknown subcommand.")
		}
	}
}

func handleArtSet(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent, mapper *models.Mapper) error {
	attachment := e.SlashCommandInteractionData().Attachment("image")
	contentType := ""
	if attachment.ContentType != nil {
		contentType = *attachment.ContentType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return utils.CreateError(e, "That attachment is not an image.")
	}
	if attachment.Size > maxArtSize {
		return utils.CreateError(e, fmt.Sprintf("The image is too large, the limit is %dMB.", maxArtSize/1024/1024))
	}

	if err := e.DeferCreateMessage(true); err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	imageData, err := downloadAttachment(ctx, attachment.URL)
	if err != nil {
		slog.Error("Failed to download art attachment",
			slog.Int64("mapper_id", mapper.ID),
			slog.Any("error", err))
		return utils.UpdateError(e, "Failed to download the image from Discord. Please try again.")
	}

	if err = b.Spaces.UploadAvatar(ctx, mapper.ID, imageData, contentType); err != nil {
		slog.Error("Failed to upload mapper art",
			slog.Int64("mapper_id", mapper.ID),
			slog.Any("error", err))
		return utils.UpdateError(e, "Failed to store the image. Please try again later.")
	}

	url := b.Spaces.AvatarURL(mapper.ID)
	if err = b.MapperRepository.SetAvatarURL(ctx, mapper.ID, url); err != nil {
		slog.Error("Failed to save mapper art URL",
			slog.Int64("mapper_id", mapper.ID),
			slog.Any("error", err))
		return utils.UpdateError(e, "The image was stored but saving it failed. Please try again.")
	}

	embed := discord.Embed{
		Title:       "Art updated",
		Description: fmt.Sprintf("New cards of **%s** will use this art.", mapper.Username),
		Color:       utils.SuccessColor,
		Image:       &discord.EmbedResource{URL: url},
	}
	_, err = e.UpdateInteractionResponse(discord.MessageUpdate{Embeds: &[]discord.Embed{embed}})
	return err
}

func handleArtClear(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent, mapper *models.Mapper) error {
	if err := b.Spaces.DeleteAvatar(ctx, mapper.ID); err != nil {
		slog.Error("Failed to delete mapper art",
			slog.Int64("mapper_id", mapper.ID),
			slog.Any("error", err))
		return utils.CreateError(e, "Failed to remove the stored image. Please try again later.")
	}
	if err := b.MapperRepository.SetAvatarURL(ctx, mapper.ID, ""); err != nil {
		slog.Error("Failed to clear mapper art URL",
			slog.Int64("mapper_id", mapper.ID),
			slog.Any("error", err))
		return utils.CreateError(e, "Failed to save the change. Please try again later.")
	}
	return utils.CreateSuccess(e, "Art removed",
		fmt.Sprintf("New cards of **%s** will drop without art.", mapper.Username))
}

func downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := artClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArtSize+1))
}

// MapperArtAutocompleteHandler reuses the wishlist mapper matching.
func MapperArtAutocompleteHandler(b *mapbot.Bot) handler.AutocompleteHandler {
	return WishlistAutocompleteHandler(b)
}
