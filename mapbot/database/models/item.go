package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	Usable      bool      `bun:"usable,notnull,default:false"`
	ShopPrice   int64     `bun:"shop_price,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// InventoryEntry is one (user, item) balance row. Currencies are just
// item ids; amounts never go negative.
type InventoryEntry struct {
	bun.BaseModel `bun:"table:inventory_entries,alias:ie"`

	UserID string `bun:"user_id,pk"`
	ItemID string `bun:"item_id,pk"`
	Amount int64  `bun:"amount,notnull"`

	Item *Item `bun:"rel:belongs-to,join:item_id=id"`
}

const (
	ItemGold         = "gold"
	ItemFreeClaim    = "free claim"
	ItemClaimSpeedup = "claim speedup"
	ItemDropSpeedup  = "drop speedup"
	ItemSuperdrop    = "superdrop"

	ItemDamagedDust = "damaged dust"
	ItemPoorDust    = "poor dust"
	ItemGoodDust    = "good dust"
	ItemMintDust    = "mint dust"
)

// DefaultItems seeds the item catalog.
func DefaultItems() []*Item {
	return []*Item{
		{ID: ItemGold, Name: "Gold", Description: "The main currency"},
		{ID: ItemFreeClaim, Name: "Free Claim", Description: "Claim a card while your claim is on cooldown", ShopPrice: 400},
		{ID: ItemClaimSpeedup, Name: "Claim Speedup", Description: "Halves the claim cooldown for 6 hours", Usable: true, ShopPrice: 300},
		{ID: ItemDropSpeedup, Name: "Drop Speedup", Description: "Halves the drop cooldown for 6 hours", Usable: true, ShopPrice: 300},
		{ID: ItemSuperdrop, Name: "Superdrop", Description: "Drops 10 cards at once", Usable: true, ShopPrice: 2500},
		{ID: ItemDamagedDust, Name: "Damaged Dust"},
		{ID: ItemPoorDust, Name: "Poor Dust"},
		{ID: ItemGoodDust, Name: "Good Dust"},
		{ID: ItemMintDust, Name: "Mint Dust"},
	}
}
