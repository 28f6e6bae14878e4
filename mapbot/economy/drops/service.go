// Package drops implements the card faucet: timed drops, superdrops
// and the claim contest over freshly dropped cards.
package drops

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
	"github.com/mapbot-dev/mapbot/mapbot/database/repositories"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
	"github.com/uptrace/bun"
)

const (
	superdropCount = 10

	// A superdrop always contains at least one mapper at or above this
	// rarity.
	superdropGuaranteeRarity = 40

	// claimWindow is how long after creation a dropped card stays
	// claimable.
	claimWindow = time.Minute

	// stealChance is the claimant's odds when contesting a card that
	// was auto-assigned to its dropper.
	stealChance = 0.75
)

var (
	ErrCardNotFound = errors.New("card not found")
	ErrCardExpired  = errors.New("card expired")
	ErrNoMappers    = errors.New("no mappers available")
)

// CooldownError reports a drop or claim blocked by its cooldown.
type CooldownError struct {
	View timeout.View
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.View.Remaining.Round(time.Second))
}

// Claim outcomes.
type ClaimOutcome int

const (
	OutcomeClaimed ClaimOutcome = iota
	OutcomeAlreadyOwn
	OutcomeAlreadyClaimed
	OutcomeStealWon
	OutcomeStealLost
)

type ClaimResult struct {
	Outcome       ClaimOutcome
	Card          *models.Card
	PreviousOwner *models.User
}

type DropResult struct {
	Cards []*models.Card
}

// ArtResolver locates bucket-hosted art for mappers whose row carries
// no avatar URL. Implemented by the spaces storage service.
type ArtResolver interface {
	HasAvatar(ctx context.Context, mapperID int64) bool
	AvatarURL(mapperID int64) string
}

type Service struct {
	db       *database.DB
	mappers  repositories.MapperRepository
	cards    repositories.CardRepository
	sequence repositories.SequenceRepository
	timeouts *timeout.Service
	events   *eventlog.Service
	art      ArtResolver

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(
	db *database.DB,
	mappers repositories.MapperRepository,
	cards repositories.CardRepository,
	sequence repositories.SequenceRepository,
	timeouts *timeout.Service,
	events *eventlog.Service,
	art ArtResolver,
) *Service {
	return &Service{
		db:       db,
		mappers:  mappers,
		cards:    cards,
		sequence: sequence,
		timeouts: timeouts,
		events:   events,
		art:      art,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Drop creates a fresh set of owner-less cards for userID, gated by the
// drop cooldown. Returns the cards with mapper and condition loaded so
// callers can render them.
func (s *Service) Drop(ctx context.Context, userID string) (*DropResult, error) {
	s.mu.Lock()
	count := rollDropCount(s.rng)
	s.mu.Unlock()

	sampled, err := s.sampleForUser(ctx, userID, DropRarityScale, count)
	if err != nil {
		return nil, err
	}

	var cards []*models.Card
	err = s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		view, err := s.timeouts.Get(ctx, tx, userID, timeout.TypeDrop, true)
		if err != nil {
			return err
		}
		if view.Blocked() {
			return &CooldownError{View: view}
		}

		cards, err = s.createCards(ctx, tx, userID, sampled)
		if err != nil {
			return err
		}

		return s.timeouts.Consume(ctx, tx, userID, view)
	})
	if err != nil {
		return nil, err
	}

	s.logDropEvent(ctx, userID, "drop", cards)
	return &DropResult{Cards: cards}, nil
}

// SuperdropTx creates a larger, flatter-weighted set of cards with at
// least one high-rarity mapper, inside the caller's transaction. Not
// cooldown gated; the caller consumes the superdrop item in the same
// transaction, so a failure here rolls the item back too. Call
// LogSuperdrop once that transaction has committed.
func (s *Service) SuperdropTx(ctx context.Context, tx bun.IDB, userID string) (*DropResult, error) {
	sampled, err := s.sampleForUser(ctx, userID, SuperdropRarityScale, superdropCount)
	if err != nil {
		return nil, err
	}

	if err := s.guaranteeRarity(ctx, userID, sampled); err != nil {
		return nil, err
	}

	cards, err := s.createCards(ctx, tx, userID, sampled)
	if err != nil {
		return nil, err
	}
	return &DropResult{Cards: cards}, nil
}

// LogSuperdrop records the superdrop event after its transaction
// committed.
func (s *Service) LogSuperdrop(ctx context.Context, userID string, result *DropResult) {
	s.logDropEvent(ctx, userID, "superdrop", result.Cards)
}

// Claim resolves a claim button press. The card row is locked for the
// whole transaction so two simultaneous claims on the same drop cannot
// both succeed.
func (s *Service) Claim(ctx context.Context, userID, cardID string) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		view, err := s.timeouts.Get(ctx, tx, userID, timeout.TypeClaim, true)
		if err != nil {
			return err
		}
		if view.Blocked() {
			return &CooldownError{View: view}
		}

		card := new(models.Card)
		err = tx.NewSelect().
			Model(card).
			Relation("Owner").
			Relation("Mapper").
			Relation("DroppedBy").
			Relation("Condition").
			Where("c.id = ? AND c.burned = false", cardID).
			For("UPDATE OF c").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCardNotFound
			}
			return fmt.Errorf("failed to load card: %w", err)
		}

		if time.Since(card.CreatedAt) > claimWindow {
			return ErrCardExpired
		}

		switch {
		case card.OwnerID != nil && *card.OwnerID == userID:
			result = &ClaimResult{Outcome: OutcomeAlreadyOwn, Card: card}
			return nil

		case card.OwnerID != nil && card.DroppedByID == userID:
			// The dropper contests the auto-assigned owner. Either way
			// the claim cooldown is spent.
			s.mu.Lock()
			won := s.rng.Float64() < stealChance
			s.mu.Unlock()

			if won {
				if err := s.assignOwner(ctx, tx, card.ID, userID); err != nil {
					return err
				}
				result = &ClaimResult{Outcome: OutcomeStealWon, Card: card, PreviousOwner: card.Owner}
			} else {
				result = &ClaimResult{Outcome: OutcomeStealLost, Card: card, PreviousOwner: card.Owner}
			}
			return s.timeouts.Consume(ctx, tx, userID, view)

		case card.OwnerID != nil:
			result = &ClaimResult{Outcome: OutcomeAlreadyClaimed, Card: card}
			return nil

		default:
			if err := s.assignOwner(ctx, tx, card.ID, userID); err != nil {
				return err
			}
			result = &ClaimResult{Outcome: OutcomeClaimed, Card: card}
			return s.timeouts.Consume(ctx, tx, userID, view)
		}
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomeClaimed || result.Outcome == OutcomeStealWon {
		payload := map[string]any{"card": map[string]any{"id": result.Card.ID, "mapper": result.Card.Username}}
		if result.PreviousOwner != nil {
			payload["fought"] = map[string]any{"id": result.PreviousOwner.ID, "username": result.PreviousOwner.Username}
		}
		s.events.Log(ctx, userID, "", "claim", payload)
	}
	return result, nil
}

func (s *Service) assignOwner(ctx context.Context, tx bun.IDB, cardID, userID string) error {
	_, err := tx.NewUpdate().
		Model((*models.Card)(nil)).
		Set("owner_id = ?", userID).
		Set("claimed_by_id = ?", userID).
		Where("id = ?", cardID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to assign card owner: %w", err)
	}
	return nil
}

// sampleForUser draws count mappers from the active pool with the
// user's wishlist boosting weights.
func (s *Service) sampleForUser(ctx context.Context, userID string, scale float64, count int) ([]*models.Mapper, error) {
	pool, err := s.mappers.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoMappers
	}

	wishlisted, err := s.mappers.GetWishlistedMapperIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return SampleMappers(s.rng, pool, wishlisted, scale, count), nil
}

// guaranteeRarity swaps a random pick for a high-rarity mapper when the
// sample came up without one.
func (s *Service) guaranteeRarity(ctx context.Context, userID string, sampled []*models.Mapper) error {
	for _, m := range sampled {
		if m.Rarity >= superdropGuaranteeRarity {
			return nil
		}
	}

	pool, err := s.mappers.GetActive(ctx)
	if err != nil {
		return err
	}
	var rare []*models.Mapper
	for _, m := range pool {
		if m.Rarity >= superdropGuaranteeRarity {
			rare = append(rare, m)
		}
	}
	if len(rare) == 0 {
		return nil
	}

	wishlisted, err := s.mappers.GetWishlistedMapperIDs(ctx, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pick := SampleMappers(s.rng, rare, wishlisted, SuperdropRarityScale, 1)
	sampled[s.rng.Intn(len(sampled))] = pick[0]
	return nil
}

// createCards materializes sampled mappers as owner-less card rows with
// sequence-allocated ids, rolled conditions and foil flags.
func (s *Service) createCards(ctx context.Context, tx bun.IDB, userID string, sampled []*models.Mapper) ([]*models.Card, error) {
	ids, err := s.sequence.NextBlock(ctx, len(sampled))
	if err != nil {
		return nil, err
	}

	conditions, err := s.loadConditions(ctx, tx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cards := make([]*models.Card, len(sampled))
	for i, mapper := range sampled {
		s.mu.Lock()
		conditionID := rollCondition(s.rng)
		foil := rollFoil(s.rng)
		s.mu.Unlock()

		condition := conditions[conditionID]
		cards[i] = &models.Card{
			ID:            utils.CardCode(ids[i]),
			MapperID:      mapper.ID,
			DroppedByID:   userID,
			Username:      mapper.Username,
			AvatarURL:     s.resolveArt(ctx, mapper),
			ConditionID:   conditionID,
			Foil:          foil,
			BurnValue:     models.ComputeBurnValue(mapper.Rarity, condition.Multiplier, foil),
			JobBaseEffort: int64(mapper.Rarity),
			JobMotivation: 7,
			CreatedAt:     now,
			Mapper:        mapper,
			Condition:     condition,
		}
	}

	if err := s.cards.CreateAll(ctx, tx, cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// resolveArt picks the avatar URL minted onto a card. Mapper rows
// imported without art can still have a frame uploaded to the bucket,
// so the bucket is checked before falling back to no art at all.
func (s *Service) resolveArt(ctx context.Context, mapper *models.Mapper) string {
	if mapper.AvatarURL != "" {
		return mapper.AvatarURL
	}
	if s.art != nil && s.art.HasAvatar(ctx, mapper.ID) {
		return s.art.AvatarURL(mapper.ID)
	}
	return ""
}

func (s *Service) loadConditions(ctx context.Context, db bun.IDB) (map[string]*models.CardCondition, error) {
	var conditions []*models.CardCondition
	if err := db.NewSelect().Model(&conditions).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load conditions: %w", err)
	}
	byID := make(map[string]*models.CardCondition, len(conditions))
	for _, c := range conditions {
		byID[c.ID] = c
	}
	return byID, nil
}

func (s *Service) logDropEvent(ctx context.Context, userID, action string, cards []*models.Card) {
	summaries := make([]map[string]any, len(cards))
	for i, card := range cards {
		summaries[i] = map[string]any{"id": card.ID, "mapper": card.Username}
	}
	s.events.Log(ctx, userID, "", action, map[string]any{"cards": summaries})
}
