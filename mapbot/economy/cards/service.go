// Package cards holds card-level operations shared by several
// commands: ownership resolution, usage guards and burning.
package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/uptrace/bun"
)

var (
	// ErrCardNotFound covers missing, burned and unclaimed cards alike
	// so callers cannot probe other users' pools.
	ErrCardNotFound = errors.New("card not found")

	// ErrNotOwner is returned when the card exists but belongs to
	// someone else.
	ErrNotOwner = errors.New("you don't own this card")

	// ErrCardInUse blocks burn, trade and upgrade while the card is
	// held by a job slot.
	ErrCardInUse = errors.New("card is currently in use")
)

// Usage values returned by CardUsage.
const (
	UsageJobSlot = "job_slot"
)

// BurnResult reports what a burn credited.
type BurnResult struct {
	Card      *models.Card
	Gold      int64
	DustType  string
	DustValue int64
}

type Service struct {
	items *inventory.Service
}

func NewService(items *inventory.Service) *Service {
	return &Service{items: items}
}

// GetOwnedCard resolves a card code for a user. Codes are matched
// case-insensitively. Burned and never-claimed cards resolve to
// ErrCardNotFound. With lockForWrite the row is locked for the rest of
// the caller's transaction.
func (s *Service) GetOwnedCard(ctx context.Context, tx bun.IDB, userID, cardID string, lockForWrite bool) (*models.Card, error) {
	card := new(models.Card)
	q := tx.NewSelect().
		Model(card).
		Relation("Owner").
		Relation("Condition").
		Relation("Mapper").
		Where("c.id = ? AND c.burned = false AND c.owner_id IS NOT NULL", strings.ToLower(cardID))
	if lockForWrite {
		q = q.For("UPDATE OF c")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to load card: %w", err)
	}
	if card.OwnerID == nil || *card.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return card, nil
}

// CardUsage reports what currently holds the card, or "" when it is
// free. A card in use cannot be burned, traded or upgraded.
func (s *Service) CardUsage(ctx context.Context, tx bun.IDB, cardID string) (string, error) {
	count, err := tx.NewSelect().
		Model((*models.JobAssignment)(nil)).
		Where("card_id = ?", cardID).
		Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to check card usage: %w", err)
	}
	if count > 0 {
		return UsageJobSlot, nil
	}
	return "", nil
}

// Burn marks the card burned and credits its gold and dust value to the
// owner. The card must already be locked for write by the caller's
// transaction.
func (s *Service) Burn(ctx context.Context, tx bun.IDB, userID string, card *models.Card) (*BurnResult, error) {
	_, err := tx.NewUpdate().
		Model((*models.Card)(nil)).
		Set("burned = true").
		Where("id = ? AND burned = false", card.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to burn card: %w", err)
	}

	dustType := models.DustType(card.ConditionID)
	dustValue := models.DustValue(card.Mapper.Rarity)

	if _, err := s.items.ChangeCount(ctx, tx, userID, models.ItemGold, card.BurnValue); err != nil {
		return nil, fmt.Errorf("failed to credit burn gold: %w", err)
	}
	if _, err := s.items.ChangeCount(ctx, tx, userID, dustType, dustValue); err != nil {
		return nil, fmt.Errorf("failed to credit burn dust: %w", err)
	}

	return &BurnResult{
		Card:      card,
		Gold:      card.BurnValue,
		DustType:  dustType,
		DustValue: dustValue,
	}, nil
}
