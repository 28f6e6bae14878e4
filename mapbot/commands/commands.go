package commands

import (
	"github.com/disgoorg/disgo/discord"
)

// Commands is every slash command the bot registers on sync.
var Commands = []discord.ApplicationCommandCreate{
	Drop,
	Daily,
	Burn,
	Upgrade,
	Trade,
	Multitrade,
	Jobs,
	Use,
	Buy,
	Gamble,
	SlotRewards,
	Collection,
	Wishlist,
	Inventory,
	Cooldowns,
	Settings,
	MapperArt,
	Leaderboard,
}
