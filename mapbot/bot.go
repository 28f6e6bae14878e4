package mapbot

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/repositories"
	"github.com/mapbot-dev/mapbot/mapbot/handlers"
	"github.com/mapbot-dev/mapbot/mapbot/economy/drops"
	"github.com/mapbot-dev/mapbot/mapbot/economy/gamble"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/items"
	"github.com/mapbot-dev/mapbot/mapbot/economy/jobs"
	"github.com/mapbot-dev/mapbot/mapbot/economy/rewards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/economy/trade"
	"github.com/mapbot-dev/mapbot/mapbot/economy/upgrade"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/mapbot-dev/mapbot/mapbot/services/leaderboard"
	"github.com/mapbot-dev/mapbot/mapbot/services/renderer"
	"github.com/mapbot-dev/mapbot/mapbot/services/storage"
	"github.com/mapbot-dev/mapbot/mapbot/utils"

	cardsvc "github.com/mapbot-dev/mapbot/mapbot/economy/cards"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

// Bot holds every long-lived collaborator. Fields are populated once
// in main before any handler runs.
type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB        *database.DB
	Processes *utils.BackgroundProcessManager

	UserRepository          repositories.UserRepository
	MapperRepository        repositories.MapperRepository
	CardRepository          repositories.CardRepository
	SequenceRepository      repositories.SequenceRepository
	GuildSettingsRepository repositories.GuildSettingsRepository

	Inventory    *inventory.Service
	Timeouts     *timeout.Service
	Cards        *cardsvc.Service
	Drops        *drops.Service
	Upgrades     *upgrade.Service
	Trades       *trade.Service
	Jobs         *jobs.Service
	JobScheduler *jobs.Scheduler
	Gamble       *gamble.Service
	Rewards      *rewards.Service
	Items        *items.Service
	EventLog     *eventlog.Service
	Leaderboard  *leaderboard.Service
	Renderer     *renderer.CardRenderer
	Spaces       *storage.SpacesService
	Reminders    *handlers.ReminderSender
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("mapbot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("mappers get dropped"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
