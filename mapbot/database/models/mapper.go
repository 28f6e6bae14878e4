package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Mapper is a catalog entry for a real mapper. Rarity drives both drop
// probability and base card value. Deleted mappers are excluded from
// future drops but keep their historical cards.
type Mapper struct {
	bun.BaseModel `bun:"table:mappers,alias:m"`

	ID        int64  `bun:"id,pk"`
	Username  string `bun:"username,notnull"`
	AvatarURL string `bun:"avatar_url,notnull"`
	Rarity    int    `bun:"rarity,notnull"`
	Deleted   bool   `bun:"deleted,notnull,default:false"`
}

type WishlistEntry struct {
	bun.BaseModel `bun:"table:wishlist_entries,alias:we"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	MapperID  int64     `bun:"mapper_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Mapper *Mapper `bun:"rel:belongs-to,join:mapper_id=id"`
}
