package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OfferTypeCard = "card"
	OfferTypeItem = "item"
)

// TradeSession is a live two-party negotiation. It is deleted on both
// execution and cancellation; only the event log retains history.
// Version increments on every offer change and invalidates accepts
// recorded against older versions.
type TradeSession struct {
	bun.BaseModel `bun:"table:trade_sessions,alias:ts"`

	ID          int64     `bun:"id,pk,autoincrement"`
	User1ID     string    `bun:"user1_id,notnull"`
	User2ID     string    `bun:"user2_id,notnull"`
	ChannelID   string    `bun:"channel_id,notnull"`
	Version     int64     `bun:"version,notnull,default:0"`
	LastUpdated time.Time `bun:"last_updated,notnull,default:current_timestamp"`

	User1  *User         `bun:"rel:belongs-to,join:user1_id=id"`
	User2  *User         `bun:"rel:belongs-to,join:user2_id=id"`
	Offers []*TradeOffer `bun:"rel:has-many,join:id=trade_session_id"`
}

// Involves reports whether the user is one of the two parties.
func (s *TradeSession) Involves(userID string) bool {
	return s.User1ID == userID || s.User2ID == userID
}

// Counterparty returns the other user's id.
func (s *TradeSession) Counterparty(userID string) string {
	if s.User1ID == userID {
		return s.User2ID
	}
	return s.User1ID
}

type TradeOffer struct {
	bun.BaseModel `bun:"table:trade_offers,alias:to"`

	ID             int64   `bun:"id,pk,autoincrement"`
	TradeSessionID int64   `bun:"trade_session_id,notnull"`
	UserID         string  `bun:"user_id,notnull"`
	Type           string  `bun:"type,notnull"`
	CardID         *string `bun:"card_id"`
	ItemID         *string `bun:"item_id"`
	Quantity       int64   `bun:"quantity,notnull"`

	Card *Card `bun:"rel:belongs-to,join:card_id=id"`
	Item *Item `bun:"rel:belongs-to,join:item_id=id"`
}

// TradeAccept records a party's agreement at a specific session version.
type TradeAccept struct {
	bun.BaseModel `bun:"table:trade_accepts,alias:ta"`

	ID             int64  `bun:"id,pk,autoincrement"`
	TradeSessionID int64  `bun:"trade_session_id,notnull"`
	UserID         string `bun:"user_id,notnull"`
	Version        int64  `bun:"version,notnull"`
}
