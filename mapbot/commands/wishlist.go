package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/sahilm/fuzzy"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/database/repositories"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

var Wishlist = discord.SlashCommandCreate{
	Name:        "wishlist",
	Description: "Manage the mappers you hope to pull",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "add",
			Description: "Add a mapper to your wishlist",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:         "mapper",
					Description:  "The mapper's name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "remove",
			Description: "Remove a mapper from your wishlist",
			Options: []discord.ApplicationCommandOption{
				&discord.ApplicationCommandOptionString{
					Name:         "mapper",
					Description:  "The mapper's name",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		&discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "Show your wishlist",
		},
	},
}

func WishlistHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.FindOrCreate(ctx, userID, e.User().Username); err != nil {
			return utils.CreateError(e, "Failed to load your profile. Please try again later.")
		}

		data := e.SlashCommandInteractionData()
		switch *data.SubCommandName {
		case "add":
			return handleWishlistAdd(ctx, b, e, strings.TrimSpace(data.String("mapper")))
		case "remove":
			return handleWishlistRemove(ctx, b, e, strings.TrimSpace(data.String("mapper")))
		case "list":
			return handleWishlistList(ctx, b, e)
		default:
			return utils.CreateError(e, "Unknown subcommand.")
		}
	}
}

func handleWishlistAdd(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent, name string) error {
	mapper, err := b.MapperRepository.GetByUsername(ctx, name)
	if err != nil {
		var notFound *repositories.NotFoundError
		if errors.As(err, &notFound) {
			return utils.CreateError(e, fmt.Sprintf("No mapper named **%s** exists.", name))
		}
		slog.Error("Wishlist mapper lookup failed", slog.Any("error", err))
		return utils.CreateError(e, "Failed to look up the mapper. Please try again later.")
	}

	if err = b.MapperRepository.AddWishlistEntry(ctx, e.User().ID.String(), mapper.ID); err != nil {
		slog.Error("Wishlist add failed", slog.Any("error", err))
		return utils.CreateError(e, "Failed to update your wishlist. Please try again later.")
	}
	return utils.CreateSuccess(e, "Wishlist updated",
		fmt.Sprintf("**%s** is on your wishlist. Their cards drop a little more often for you.", mapper.Username))
}

func handleWishlistRemove(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent, name string) error {
	mapper, err := b.MapperRepository.GetByUsername(ctx, name)
	if err != nil {
		var notFound *repositories.NotFoundError
		if errors.As(err, &notFound) {
			return utils.CreateError(e, fmt.Sprintf("No mapper named **%s** exists.", name))
		}
		slog.Error("Wishlist mapper lookup failed", slog.Any("error", err))
		return utils.CreateError(e, "Failed to look up the mapper. Please try again later.")
	}

	removed, err := b.MapperRepository.RemoveWishlistEntry(ctx, e.User().ID.String(), mapper.ID)
	if err != nil {
		slog.Error("Wishlist remove failed", slog.Any("error", err))
		return utils.CreateError(e, "Failed to update your wishlist. Please try again later.")
	}
	if !removed {
		return utils.CreateError(e, fmt.Sprintf("**%s** was not on your wishlist.", mapper.Username))
	}
	return utils.CreateSuccess(e, "Wishlist updated",
		fmt.Sprintf("**%s** is off your wishlist.", mapper.Username))
}

func handleWishlistList(ctx context.Context, b *mapbot.Bot, e *handler.CommandEvent) error {
	entries, err := b.MapperRepository.GetWishlist(ctx, e.User().ID.String())
	if err != nil {
		slog.Error("Wishlist list failed", slog.Any("error", err))
		return utils.CreateError(e, "Failed to load your wishlist. Please try again later.")
	}
	if len(entries) == 0 {
		return utils.CreateError(e, "Your wishlist is empty. Add mappers with `/wishlist add`.")
	}

	var description strings.Builder
	for _, entry := range entries {
		if entry.Mapper == nil {
			continue
		}
		description.WriteString(fmt.Sprintf("**%s** · rarity %d\n", entry.Mapper.Username, entry.Mapper.Rarity))
	}
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       fmt.Sprintf("%s's wishlist", e.User().Username),
			Description: description.String(),
			Color:       utils.InfoColor,
		}},
	})
}

// WishlistAutocompleteHandler fuzzy-matches active mapper names.
func WishlistAutocompleteHandler(b *mapbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "mapper" {
			return nil
		}

		searchTerm := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err == nil {
				searchTerm = strings.TrimSpace(s)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		names, err := b.MapperRepository.GetActiveUsernames(ctx)
		if err != nil {
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}

		choices := make([]discord.AutocompleteChoice, 0, 25)
		if searchTerm == "" {
			for _, name := range names {
				if len(choices) == 25 {
					break
				}
				choices = append(choices, discord.AutocompleteChoiceString{Name: name, Value: name})
			}
		} else {
			for _, match := range fuzzy.Find(searchTerm, names) {
				if len(choices) == 25 {
					break
				}
				choices = append(choices, discord.AutocompleteChoiceString{
					Name:  names[match.Index],
					Value: names[match.Index],
				})
			}
		}
		return e.AutocompleteResult(choices)
	}
}
