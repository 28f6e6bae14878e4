package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"

	"github.com/mapbot-dev/mapbot/mapbot"
	"github.com/mapbot-dev/mapbot/mapbot/commands"
	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/repositories"
	"github.com/mapbot-dev/mapbot/mapbot/economy/drops"
	"github.com/mapbot-dev/mapbot/mapbot/economy/gamble"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/items"
	"github.com/mapbot-dev/mapbot/mapbot/economy/jobs"
	"github.com/mapbot-dev/mapbot/mapbot/economy/rewards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/economy/trade"
	"github.com/mapbot-dev/mapbot/mapbot/economy/upgrade"
	"github.com/mapbot-dev/mapbot/mapbot/handlers"
	"github.com/mapbot-dev/mapbot/mapbot/logger"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/mapbot-dev/mapbot/mapbot/services/leaderboard"
	"github.com/mapbot-dev/mapbot/mapbot/services/renderer"
	"github.com/mapbot-dev/mapbot/mapbot/services/storage"
	"github.com/mapbot-dev/mapbot/mapbot/utils"

	cardsvc "github.com/mapbot-dev/mapbot/mapbot/economy/cards"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler()))

	slog.Info("Starting mapbot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := mapbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbStart := time.Now()
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStart)))
		os.Exit(-1)
	}
	defer db.Close()

	if err = db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStart)))

	b := mapbot.New(*cfg, version, commit)
	b.DB = db
	b.Processes = utils.NewBackgroundProcessManager()

	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.MapperRepository = repositories.NewMapperRepository(db.BunDB())
	b.CardRepository = repositories.NewCardRepository(db.BunDB())
	b.SequenceRepository = repositories.NewSequenceRepository(db.BunDB())
	b.GuildSettingsRepository = repositories.NewGuildSettingsRepository(db.BunDB())

	var art drops.ArtResolver
	if cfg.Spaces.Key != "" {
		spaces, err := storage.NewSpacesService(
			cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region, cfg.Spaces.Bucket, cfg.Spaces.ArtRoot)
		if err != nil {
			slog.Error("Failed to initialize spaces storage", slog.Any("error", err))
			os.Exit(-1)
		}
		b.Spaces = spaces
		art = spaces
	} else {
		slog.Warn("Spaces storage not configured, card art uploads disabled")
	}

	b.EventLog = eventlog.NewService(db.BunDB())
	b.Inventory = inventory.NewService()
	b.Timeouts = timeout.NewService(b.Inventory)
	b.Cards = cardsvc.NewService(b.Inventory)
	b.Drops = drops.NewService(db, b.MapperRepository, b.CardRepository, b.SequenceRepository, b.Timeouts, b.EventLog, art)
	b.Upgrades = upgrade.NewService(db, b.Cards, b.Inventory, b.EventLog)
	b.Trades = trade.NewService(db, b.Cards, b.Inventory, b.EventLog)
	b.Jobs = jobs.NewService(db, b.Cards, b.Inventory)
	b.Gamble = gamble.NewService(db, b.Inventory, b.EventLog)
	b.Rewards = rewards.NewService(db, b.Inventory, b.Timeouts, b.EventLog)
	b.Items = items.NewService(db, b.Inventory, b.Timeouts, b.Drops, b.EventLog)
	b.Leaderboard = leaderboard.NewService(db.BunDB())

	cardRenderer, err := renderer.NewCardRenderer()
	if err != nil {
		slog.Error("Failed to initialize card renderer", slog.Any("error", err))
		os.Exit(-1)
	}
	b.Renderer = cardRenderer

	h := handler.New()

	h.Command("/drop", handlers.WrapWithLogging("drop", commands.DropHandler(b)))
	h.Component("/claim/{card_id}", handlers.WrapComponentWithLogging("claim", commands.ClaimButtonHandler(b)))
	h.Command("/daily", handlers.WrapWithLogging("daily", commands.DailyHandler(b)))
	h.Command("/burn", handlers.WrapWithLogging("burn", commands.BurnHandler(b)))
	h.Component("/burn/{action}", handlers.WrapComponentWithLogging("burn", commands.BurnComponentHandler(b)))
	h.Component("/burn/confirm/{card_id}", handlers.WrapComponentWithLogging("burn-confirm", commands.BurnComponentHandler(b)))
	h.Command("/upgrade", handlers.WrapWithLogging("upgrade", commands.UpgradeHandler(b)))
	h.Component("/upgrade/{action}", handlers.WrapComponentWithLogging("upgrade", commands.UpgradeComponentHandler(b)))
	h.Component("/upgrade/confirm/{card_id}/{tier}/{price}", handlers.WrapComponentWithLogging("upgrade-confirm", commands.UpgradeComponentHandler(b)))
	h.Command("/trade", handlers.WrapWithLogging("trade", commands.TradeHandler(b)))
	h.Component("/trade/decline/{user1}/{user2}", handlers.WrapComponentWithLogging("trade-decline", commands.TradeComponentHandler(b)))
	h.Component("/trade/accept/{user1}/{user2}/{card1}/{card2}", handlers.WrapComponentWithLogging("trade-accept", commands.TradeComponentHandler(b)))
	h.Component("/trade/accept/{user1}/{user2}/{card1}/{card2}/{accepted}", handlers.WrapComponentWithLogging("trade-accept", commands.TradeComponentHandler(b)))
	h.Command("/multitrade", handlers.WrapWithLogging("multitrade", commands.MultitradeHandler(b)))
	h.Component("/multitrade/decline", handlers.WrapComponentWithLogging("multitrade-decline", commands.MultitradeComponentHandler(b)))
	h.Component("/multitrade/open/{user1}/{user2}", handlers.WrapComponentWithLogging("multitrade-open", commands.MultitradeComponentHandler(b)))
	h.Command("/jobs", handlers.WrapWithLogging("jobs", commands.JobsHandler(b)))
	h.Command("/use", handlers.WrapWithLogging("use", commands.UseHandler(b)))
	h.Autocomplete("/use", commands.UseAutocompleteHandler(b))
	h.Command("/buy", handlers.WrapWithLogging("buy", commands.BuyHandler(b)))
	h.Autocomplete("/buy", commands.BuyAutocompleteHandler(b))
	h.Component("/buy/{action}", handlers.WrapComponentWithLogging("buy", commands.BuyComponentHandler(b)))
	h.Component("/buy/confirm/{item_id}/{quantity}/{total}", handlers.WrapComponentWithLogging("buy-confirm", commands.BuyComponentHandler(b)))
	h.Command("/gamble", handlers.WrapWithLogging("gamble", commands.GambleHandler(b)))
	h.Component("/gamble/{action}", handlers.WrapComponentWithLogging("gamble", commands.GambleComponentHandler(b)))
	h.Component("/gamble/confirm/{bet}", handlers.WrapComponentWithLogging("gamble-confirm", commands.GambleComponentHandler(b)))
	h.Command("/slotrewards", handlers.WrapWithLogging("slotrewards", commands.SlotRewardsHandler(b)))
	h.Command("/collection", handlers.WrapWithLogging("collection", commands.CollectionHandler(b)))
	h.Command("/wishlist", handlers.WrapWithLogging("wishlist", commands.WishlistHandler(b)))
	h.Autocomplete("/wishlist", commands.WishlistAutocompleteHandler(b))
	h.Command("/inventory", handlers.WrapWithLogging("inventory", commands.InventoryHandler(b)))
	h.Command("/cooldowns", handlers.WrapWithLogging("cooldowns", commands.CooldownsHandler(b)))
	h.Command("/settings", handlers.WrapWithLogging("settings", commands.SettingsHandler(b)))
	h.Command("/mapperart", handlers.WrapWithLogging("mapperart", commands.MapperArtHandler(b)))
	h.Autocomplete("/mapperart", commands.MapperArtAutocompleteHandler(b))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", commands.LeaderboardHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot", slog.Any("error", err))
		os.Exit(-1)
	}

	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		b.Client.Close(closeCtx)
	}()

	// Collaborators that need the gateway client.
	b.Reminders = handlers.NewReminderSender(b.Client)
	b.JobScheduler = jobs.NewScheduler(b.Jobs, handlers.NewJobNotifier(b.Client))
	b.JobScheduler.Start(b.Processes)
	b.Leaderboard.Start(ctx, b.Processes)

	if *shouldSyncCommands {
		slog.Info("Syncing commands", slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands", slog.Any("error", err))
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down bot...")
	if err = b.Processes.Shutdown(30 * time.Second); err != nil {
		slog.Warn("Background processes did not stop cleanly", slog.Any("error", err))
	}
}
