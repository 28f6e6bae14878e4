// Package inventory is the item and currency ledger. Every balance is
// one (user, item) row; gold and the dust currencies are ordinary item
// ids. All mutations are transaction-scoped: the service never commits,
// the caller's transaction boundary decides atomicity with sibling
// operations.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

// InsufficientBalanceError is returned when a debit would drive a
// balance negative. The balance is left unchanged.
type InsufficientBalanceError struct {
	ItemID string
	Have   int64
	Need   int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s (have %d, need %d)", e.ItemID, e.Have, e.Need)
}

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// GetCount returns the user's balance for an item, 0 if no row exists.
func (s *Service) GetCount(ctx context.Context, db bun.IDB, userID, itemID string) (int64, error) {
	entry := new(models.InventoryEntry)
	err := db.NewSelect().
		Model(entry).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return entry.Amount, nil
}

// ChangeCount applies delta to the user's balance for an item and
// returns the previous amount. The negative-balance check and the write
// happen inside the caller's transaction; under serializable isolation
// two concurrent debits of the same row cannot both pass the check.
//
// The returned previous amount is the value read at the start of this
// call; callers needing the post-update balance should re-read instead
// of deriving it.
func (s *Service) ChangeCount(ctx context.Context, tx bun.IDB, userID, itemID string, delta int64) (int64, error) {
	entry := new(models.InventoryEntry)
	err := tx.NewSelect().
		Model(entry).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Scan(ctx)

	exists := true
	previous := int64(0)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to read balance: %w", err)
		}
		exists = false
	} else {
		previous = entry.Amount
	}

	if previous+delta < 0 {
		return previous, &InsufficientBalanceError{ItemID: itemID, Have: previous, Need: -delta}
	}

	if exists {
		result, err := tx.NewUpdate().
			Model((*models.InventoryEntry)(nil)).
			Set("amount = amount + ?", delta).
			Where("user_id = ? AND item_id = ? AND amount + ? >= 0", userID, itemID, delta).
			Exec(ctx)
		if err != nil {
			return previous, fmt.Errorf("failed to update balance: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return previous, &InsufficientBalanceError{ItemID: itemID, Have: previous, Need: -delta}
		}
	} else {
		_, err := tx.NewInsert().
			Model(&models.InventoryEntry{
				UserID: userID,
				ItemID: itemID,
				Amount: delta,
			}).
			Exec(ctx)
		if err != nil {
			return previous, fmt.Errorf("failed to create balance row: %w", err)
		}
	}

	return previous, nil
}

// ListItems returns all of a user's positive balances with item data.
func (s *Service) ListItems(ctx context.Context, db bun.IDB, userID string) ([]*models.InventoryEntry, error) {
	var entries []*models.InventoryEntry
	err := db.NewSelect().
		Model(&entries).
		Relation("Item").
		Where("ie.user_id = ? AND ie.amount > 0", userID).
		Order("ie.item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return entries, nil
}
