package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"
)

type CardRepository interface {
	GetByID(ctx context.Context, id string) (*models.Card, error)
	GetLatestOwned(ctx context.Context, userID string) (*models.Card, error)
	ListOwned(ctx context.Context, userID string, limit, offset int) ([]*models.Card, error)
	CountOwned(ctx context.Context, userID string) (int, error)
	CreateAll(ctx context.Context, tx bun.IDB, cards []*models.Card) error
}

type cardRepository struct {
	db *bun.DB
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Relation("Mapper").
		Relation("Owner").
		Relation("Condition").
		Where("c.id = ?", strings.ToLower(id)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "card", ID: id}
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// GetLatestOwned returns the user's most recently dropped unburned card.
func (r *cardRepository) GetLatestOwned(ctx context.Context, userID string) (*models.Card, error) {
	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Relation("Mapper").
		Relation("Owner").
		Relation("Condition").
		Where("c.owner_id = ? AND c.burned = false", userID).
		Order("c.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Entity: "card", ID: "latest"}
		}
		return nil, fmt.Errorf("failed to get latest card: %w", err)
	}
	return card, nil
}

func (r *cardRepository) ListOwned(ctx context.Context, userID string, limit, offset int) ([]*models.Card, error) {
	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Relation("Mapper").
		Relation("Condition").
		Where("c.owner_id = ? AND c.burned = false", userID).
		Order("c.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

func (r *cardRepository) CountOwned(ctx context.Context, userID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Card)(nil)).
		Where("owner_id = ? AND burned = false", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}

func (r *cardRepository) CreateAll(ctx context.Context, tx bun.IDB, cards []*models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&cards).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert cards: %w", err)
	}
	return nil
}
