// Package upgrade implements condition-tier upgrades: a quoted price
// and success chance, then an atomic debit-roll-mutate attempt that
// re-validates the quote under lock.
package upgrade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/uptrace/bun"
)

var (
	// ErrTerminalCondition means the card is already at the top tier.
	ErrTerminalCondition = errors.New("card cannot be upgraded further")

	// ErrStale means the card's owner or condition changed between the
	// quote and the attempt. The attempt makes no mutation.
	ErrStale = errors.New("card changed since the upgrade was quoted")
)

// downgradeChance applies after a failed roll when a lower tier exists.
const downgradeChance = 0.5

// Quote is a priced upgrade offer for a card at a specific tier. The
// attempt re-validates that the tier is still the quoted one.
type Quote struct {
	Card      *models.Card
	Condition *models.CardCondition
	Next      *models.CardCondition
	Previous  *models.CardCondition
	Price     int64
}

type Result struct {
	Success      bool
	Downgraded   bool
	NewCondition string
}

type Service struct {
	db     *database.DB
	cards  *cards.Service
	items  *inventory.Service
	events *eventlog.Service

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(db *database.DB, cardSvc *cards.Service, items *inventory.Service, events *eventlog.Service) *Service {
	return &Service{
		db:     db,
		cards:  cardSvc,
		items:  items,
		events: events,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BuildQuote prices an upgrade for an owned, non-terminal card. Foil
// cards pay double.
func BuildQuote(card *models.Card, condition, next, previous *models.CardCondition) (*Quote, error) {
	if next == nil {
		return nil, ErrTerminalCondition
	}
	price := condition.UpgradePrice
	if card.Foil {
		price *= 2
	}
	return &Quote{
		Card:      card,
		Condition: condition,
		Next:      next,
		Previous:  previous,
		Price:     price,
	}, nil
}

// GetQuote loads the card with its condition chain and prices the
// upgrade.
func (s *Service) GetQuote(ctx context.Context, userID, cardID string) (*Quote, error) {
	card, err := s.cards.GetOwnedCard(ctx, s.db.BunDB(), userID, cardID, false)
	if err != nil {
		return nil, err
	}

	condition, err := s.loadConditionChain(ctx, s.db.BunDB(), card.ConditionID)
	if err != nil {
		return nil, err
	}
	return BuildQuote(card, condition, condition.Next, condition.Previous)
}

// Attempt executes a quoted upgrade. The debit is unconditional once
// the quote re-validates; the roll then decides between advancing a
// tier, no change, or a 50% downgrade on failure.
func (s *Service) Attempt(ctx context.Context, userID string, quote *Quote) (*Result, error) {
	var result *Result
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		card, err := s.cards.GetOwnedCard(ctx, tx, userID, quote.Card.ID, true)
		if err != nil {
			if errors.Is(err, cards.ErrCardNotFound) || errors.Is(err, cards.ErrNotOwner) {
				return ErrStale
			}
			return err
		}
		if card.ConditionID != quote.Condition.ID {
			return ErrStale
		}

		condition, err := s.loadConditionChain(ctx, tx, card.ConditionID)
		if err != nil {
			return err
		}
		if condition.Next == nil {
			return ErrStale
		}

		if _, err := s.items.ChangeCount(ctx, tx, userID, models.ItemGold, -quote.Price); err != nil {
			return err
		}

		s.mu.Lock()
		success, downgrade := rollOutcome(s.rng, condition.UpgradeChance, condition.Previous != nil)
		s.mu.Unlock()

		newCondition := condition
		switch {
		case success:
			newCondition = condition.Next
		case downgrade:
			newCondition = condition.Previous
		}

		if newCondition.ID != condition.ID {
			_, err := tx.NewUpdate().
				Model((*models.Card)(nil)).
				Set("condition = ?", newCondition.ID).
				Set("burn_value = ?", models.ComputeBurnValue(card.Mapper.Rarity, newCondition.Multiplier, card.Foil)).
				Where("id = ?", card.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to change card condition: %w", err)
			}
		}

		result = &Result{
			Success:      success,
			Downgraded:   !success && downgrade,
			NewCondition: newCondition.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Log(ctx, userID, "", "upgrade", map[string]any{
		"card":      quote.Card.ID,
		"price":     quote.Price,
		"success":   result.Success,
		"condition": result.NewCondition,
	})
	return result, nil
}

// rollOutcome decides an attempt: success against the tier's chance,
// then a 50% downgrade roll when the attempt failed and a lower tier
// exists.
func rollOutcome(r *rand.Rand, chance float64, hasPrevious bool) (success, downgrade bool) {
	success = r.Float64() < chance
	if !success && hasPrevious {
		downgrade = r.Float64() < downgradeChance
	}
	return success, downgrade
}

func (s *Service) loadConditionChain(ctx context.Context, db bun.IDB, id string) (*models.CardCondition, error) {
	condition := new(models.CardCondition)
	err := db.NewSelect().
		Model(condition).
		Relation("Next").
		Relation("Previous").
		Where("cc.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unknown condition %q", id)
		}
		return nil, fmt.Errorf("failed to load condition: %w", err)
	}
	return condition, nil
}
