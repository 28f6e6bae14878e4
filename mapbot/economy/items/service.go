// Package items implements consuming usable items: cooldown speedups
// and the superdrop.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/drops"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/uptrace/bun"
)

// speedupDuration is added per consumed speedup item. Consuming while
// an effect is live stacks from its current expiry.
const speedupDuration = 6 * time.Hour

var (
	ErrNoItem     = errors.New("you do not have this item")
	ErrNotUsable  = errors.New("this item cannot be used")
	ErrNotForSale = errors.New("this item is not sold in the shop")
)

// UseResult describes what consuming the item did.
type UseResult struct {
	ItemID string

	// EffectUntil is set for speedup items.
	EffectUntil *time.Time

	// Superdrop is set when the item triggered one.
	Superdrop *drops.DropResult
}

type Service struct {
	db       *database.DB
	items    *inventory.Service
	timeouts *timeout.Service
	drops    *drops.Service
	events   *eventlog.Service
}

func NewService(db *database.DB, items *inventory.Service, timeouts *timeout.Service, dropSvc *drops.Service, events *eventlog.Service) *Service {
	return &Service{db: db, items: items, timeouts: timeouts, drops: dropSvc, events: events}
}

// Use consumes one of the named item and applies its effect. The count
// check, the effect write, the decrement and any superdrop card
// creation share one transaction, so a failed effect never eats the
// item.
func (s *Service) Use(ctx context.Context, userID, itemID string) (*UseResult, error) {
	result := &UseResult{ItemID: itemID}

	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		count, err := s.items.GetCount(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNoItem
		}

		switch itemID {
		case models.ItemClaimSpeedup:
			until, err := s.timeouts.ExtendEffect(ctx, tx, userID, models.EffectClaimSpeedup, speedupDuration)
			if err != nil {
				return err
			}
			result.EffectUntil = &until
		case models.ItemDropSpeedup:
			until, err := s.timeouts.ExtendEffect(ctx, tx, userID, models.EffectDropSpeedup, speedupDuration)
			if err != nil {
				return err
			}
			result.EffectUntil = &until
		case models.ItemSuperdrop:
			drop, err := s.drops.SuperdropTx(ctx, tx, userID)
			if err != nil {
				return err
			}
			result.Superdrop = drop
		default:
			return ErrNotUsable
		}

		_, err = s.items.ChangeCount(ctx, tx, userID, itemID, -1)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Log(ctx, userID, "", "use", map[string]any{"item": itemID})
	if result.Superdrop != nil {
		s.drops.LogSuperdrop(ctx, userID, result.Superdrop)
	}
	return result, nil
}

// Receipt describes a completed purchase.
type Receipt struct {
	Item      *models.Item
	Quantity  int64
	TotalGold int64
}

// ShopItem loads one purchasable catalog item.
func (s *Service) ShopItem(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.loadItem(ctx, s.db.BunDB(), itemID)
	if err != nil {
		return nil, err
	}
	if item.ShopPrice <= 0 {
		return nil, ErrNotForSale
	}
	return item, nil
}

// ListShopItems returns the purchasable part of the catalog.
func (s *Service) ListShopItems(ctx context.Context) ([]*models.Item, error) {
	var catalog []*models.Item
	err := s.db.BunDB().NewSelect().
		Model(&catalog).
		Where("shop_price > 0").
		Order("shop_price ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shop items: %w", err)
	}
	return catalog, nil
}

// Buy debits the gold and credits the items in one serializable
// transaction. The price is re-read inside the transaction, so a stale
// quote cannot underpay.
func (s *Service) Buy(ctx context.Context, userID, itemID string, quantity int64) (*Receipt, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var receipt *Receipt
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		item, err := s.loadItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.ShopPrice <= 0 {
			return ErrNotForSale
		}

		total := item.ShopPrice * quantity
		if _, err := s.items.ChangeCount(ctx, tx, userID, models.ItemGold, -total); err != nil {
			return err
		}
		if _, err := s.items.ChangeCount(ctx, tx, userID, item.ID, quantity); err != nil {
			return err
		}

		receipt = &Receipt{Item: item, Quantity: quantity, TotalGold: total}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Log(ctx, userID, "", "buy", map[string]any{
		"item": itemID, "quantity": quantity, "gold": receipt.TotalGold,
	})
	return receipt, nil
}

func (s *Service) loadItem(ctx context.Context, db bun.IDB, itemID string) (*models.Item, error) {
	item := new(models.Item)
	err := db.NewSelect().
		Model(item).
		Where("id = ?", itemID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotForSale
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return item, nil
}
