// Package jobs implements the job board: four named slots per user,
// card assignment, timed work runs and the background loops that
// resolve finished jobs and regenerate motivation.
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/uptrace/bun"
)

// Slots are the four job slots every user has.
var Slots = []string{"a", "b", "c", "d"}

const (
	baseJobDuration = time.Hour

	// maxEffort normalizes a card's effort stat in the success formula.
	maxEffort = 240.0

	mindblockDuration = 12 * time.Hour
)

var (
	ErrInvalidSlot     = errors.New("no such job slot")
	ErrAlreadyAssigned = errors.New("this card is already assigned to a slot")
	ErrSlotActive      = errors.New("this slot is currently active")
	ErrNoAssignments   = errors.New("no cards assigned")
	ErrAllBusy         = errors.New("all assigned cards are busy")
)

// SuccessChance is the odds a finished job ranks its map: a floor of
// 0.3 plus a motivation and effort weighted share, halved while
// mindblocked, capped at 0.9.
func SuccessChance(motivation, baseEffort int64, mindblocked bool) float64 {
	value := (float64(motivation) / 10) * math.Pow(float64(baseEffort)/maxEffort, 0.25)
	value = 0.3 + value*0.7
	if mindblocked {
		value *= 0.5
	}
	if value > 0.9 {
		value = 0.9
	}
	return value
}

// workDuration is the active window for one started job: an hour,
// shortened by up to 30% at random and up to another 30% by the card's
// effort.
func workDuration(r *rand.Rand, effort int64) time.Duration {
	factor := 1 - (r.Float64()*0.3 + float64(effort)/maxEffort*0.3)
	return time.Duration(float64(baseJobDuration) * factor)
}

// BoardEntry is one slot's state for display.
type BoardEntry struct {
	Slot       string
	Assignment *models.JobAssignment
	Card       *models.Card
}

type Service struct {
	db    *database.DB
	cards *cards.Service
	items *inventory.Service

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(db *database.DB, cardSvc *cards.Service, items *inventory.Service) *Service {
	return &Service{
		db:    db,
		cards: cardSvc,
		items: items,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Assign binds an owned card to a slot. A card can sit in one slot at a
// time and an actively running slot cannot be reassigned.
func (s *Service) Assign(ctx context.Context, userID, slot, cardID string) (*models.Card, error) {
	if !validSlot(slot) {
		return nil, ErrInvalidSlot
	}

	var card *models.Card
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		card, err = s.cards.GetOwnedCard(ctx, tx, userID, cardID, false)
		if err != nil {
			return err
		}

		usage, err := s.cards.CardUsage(ctx, tx, card.ID)
		if err != nil {
			return err
		}
		if usage == cards.UsageJobSlot {
			return ErrAlreadyAssigned
		}

		existing := new(models.JobAssignment)
		err = tx.NewSelect().
			Model(existing).
			Where("user_id = ? AND slot = ?", userID, slot).
			For("UPDATE").
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load slot: %w", err)
		}
		if err == nil && existing.IsActive() {
			return ErrSlotActive
		}

		_, err = tx.NewInsert().
			Model(&models.JobAssignment{
				UserID: userID,
				Slot:   slot,
				CardID: &card.ID,
			}).
			On("CONFLICT (user_id, slot) DO UPDATE").
			Set("card_id = EXCLUDED.card_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to assign card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Work starts every idle assignment the user has. Higher-effort cards
// get shorter windows. The invoking guild and channel are recorded so
// the resolution loop can deliver outcomes there.
func (s *Service) Work(ctx context.Context, userID, guildID, channelID string) (int, error) {
	started := 0
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var assignments []*models.JobAssignment
		err := tx.NewSelect().
			Model(&assignments).
			Relation("Card").
			Where("ja.user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to load assignments: %w", err)
		}
		if len(assignments) == 0 {
			return ErrNoAssignments
		}

		now := time.Now()
		for _, assignment := range assignments {
			if assignment.IsActive() || assignment.Card == nil {
				continue
			}

			s.mu.Lock()
			duration := workDuration(s.rng, assignment.Card.Effort(now))
			s.mu.Unlock()

			until := now.Add(duration)
			_, err := tx.NewUpdate().
				Model((*models.JobAssignment)(nil)).
				Set("started_at = ?", now).
				Set("active_until = ?", until).
				Set("guild_id = ?", guildID).
				Set("channel_id = ?", channelID).
				Where("user_id = ? AND slot = ?", userID, assignment.Slot).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to start job: %w", err)
			}
			started++
		}

		if started == 0 {
			return ErrAllBusy
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return started, nil
}

// Board returns all four slots in order, empty ones included.
func (s *Service) Board(ctx context.Context, userID string) ([]BoardEntry, error) {
	var assignments []*models.JobAssignment
	err := s.db.BunDB().NewSelect().
		Model(&assignments).
		Relation("Card").
		Relation("Card.Mapper").
		Relation("Card.Condition").
		Where("ja.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load job board: %w", err)
	}

	bySlot := make(map[string]*models.JobAssignment, len(assignments))
	for _, a := range assignments {
		bySlot[a.Slot] = a
	}

	entries := make([]BoardEntry, len(Slots))
	for i, slot := range Slots {
		entry := BoardEntry{Slot: slot}
		if a, ok := bySlot[slot]; ok {
			entry.Assignment = a
			entry.Card = a.Card
		}
		entries[i] = entry
	}
	return entries, nil
}

func validSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}
