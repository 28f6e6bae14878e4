package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

const cardsPerPage = 10

var Collection = discord.SlashCommandCreate{
	Name:        "collection",
	Description: "Browse a card collection",
	Options: []discord.ApplicationCommandOption{
		&discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose collection (defaults to yours)",
			Required:    false,
		},
	},
}

func CollectionHandler(b *mapbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		target := e.User()
		if user, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			target = user
		}
		targetID := target.ID.String()

		count, err := b.CardRepository.CountOwned(ctx, targetID)
		if err != nil {
			slog.Error("Failed to count collection", slog.Any("error", err))
			return utils.CreateError(e, "Failed to load the collection. Please try again later.")
		}
		if count == 0 {
			return utils.CreateError(e, fmt.Sprintf("**%s** owns no cards yet.", target.Username))
		}

		totalPages := int(math.Ceil(float64(count) / float64(cardsPerPage)))
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				pageCtx, pageCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer pageCancel()

				cards, err := b.CardRepository.ListOwned(pageCtx, targetID, cardsPerPage, page*cardsPerPage)
				if err != nil {
					embed.SetDescription("Failed to load this page.")
					return
				}

				var description strings.Builder
				for _, card := range cards {
					description.WriteString(utils.FormatCardLine(card) + "\n")
				}
				embed.
					SetTitle(fmt.Sprintf("%s's collection", target.Username)).
					SetDescription(description.String()).
					SetColor(utils.DefaultColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d cards", page+1, totalPages, count), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
