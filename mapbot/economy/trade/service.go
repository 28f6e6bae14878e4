// Package trade implements the two-party negotiation protocol: shared
// offer lists with optimistic versioning, an accept handshake, and the
// all-or-nothing execution that swaps cards and items. It also covers
// the simpler direct two-card trade.
package trade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/uptrace/bun"
)

var (
	ErrSelfTrade        = errors.New("cannot trade with yourself")
	ErrSessionExists    = errors.New("you are already in a trade session")
	ErrPartnerInSession = errors.New("the other user is already in a trade session")
	ErrNoSession        = errors.New("no active trade session found")
	ErrDuplicateOffer   = errors.New("this card is already part of the trade")
	ErrOfferNotFound    = errors.New("this offer is not part of the trade")
	ErrNotEnoughItems   = errors.New("you do not have enough of this item")

	// ErrOwnershipChanged aborts execution when any offer no longer
	// belongs to its offering user. Nothing is applied.
	ErrOwnershipChanged = errors.New("trade contents changed, trade aborted")

	// ErrAcceptsVoided aborts execution when an offer changed after the
	// accepts were recorded. Both parties must accept again.
	ErrAcceptsVoided = errors.New("the offer changed after it was accepted, accept again")
)

// ConfirmFunc asks the invited party to accept the session before it is
// persisted. Returning false creates nothing.
type ConfirmFunc func(ctx context.Context) (bool, error)

// AcceptState reports the handshake after one party accepted.
type AcceptState struct {
	Session      *models.TradeSession
	BothAccepted bool
}

type Service struct {
	db     *database.DB
	cards  *cards.Service
	items  *inventory.Service
	events *eventlog.Service
}

func NewService(db *database.DB, cardSvc *cards.Service, items *inventory.Service, events *eventlog.Service) *Service {
	return &Service{db: db, cards: cardSvc, items: items, events: events}
}

// StartSession opens a negotiation between two users. Each user can be
// in at most one session; both sides are checked and the row created in
// one serializable transaction so two simultaneous starts cannot both
// succeed. confirm, when non-nil, runs before the session is persisted.
func (s *Service) StartSession(ctx context.Context, user1ID, user2ID, channelID string, confirm ConfirmFunc) (*models.TradeSession, error) {
	if user1ID == user2ID {
		return nil, ErrSelfTrade
	}

	var session *models.TradeSession
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := s.activeSession(ctx, tx, user1ID); err != nil {
			return err
		} else if existing != nil {
			return ErrSessionExists
		}
		if existing, err := s.activeSession(ctx, tx, user2ID); err != nil {
			return err
		} else if existing != nil {
			return ErrPartnerInSession
		}

		if confirm != nil {
			ok, err := confirm(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}

		session = &models.TradeSession{
			User1ID:     user1ID,
			User2ID:     user2ID,
			ChannelID:   channelID,
			LastUpdated: time.Now(),
		}
		if _, err := tx.NewInsert().Model(session).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create trade session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ActiveSession returns the user's current session with offers loaded,
// or nil.
func (s *Service) ActiveSession(ctx context.Context, userID string) (*models.TradeSession, error) {
	return s.activeSession(ctx, s.db.BunDB(), userID)
}

func (s *Service) activeSession(ctx context.Context, db bun.IDB, userID string) (*models.TradeSession, error) {
	session := new(models.TradeSession)
	err := db.NewSelect().
		Model(session).
		Relation("User1").
		Relation("User2").
		Relation("Offers").
		Relation("Offers.Card").
		Relation("Offers.Item").
		Where("ts.user1_id = ? OR ts.user2_id = ?", userID, userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load trade session: %w", err)
	}
	return session, nil
}

// CancelSession deletes the user's session without applying anything.
func (s *Service) CancelSession(ctx context.Context, userID string) error {
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		session, err := s.activeSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoSession
		}
		return s.deleteSession(ctx, tx, session.ID)
	})
	if err != nil {
		return err
	}
	s.events.Log(ctx, userID, "", "trade_cancel", nil)
	return nil
}

// AddCard appends a card offer on the caller's side. Ownership and the
// job-slot guard are validated now and again at execution.
func (s *Service) AddCard(ctx context.Context, userID, cardID string) (*models.TradeSession, error) {
	var session *models.TradeSession
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		card, err := s.cards.GetOwnedCard(ctx, tx, userID, cardID, false)
		if err != nil {
			return err
		}
		usage, err := s.cards.CardUsage(ctx, tx, card.ID)
		if err != nil {
			return err
		}
		if usage != "" {
			return cards.ErrCardInUse
		}

		session, err = s.activeSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoSession
		}

		exists, err := tx.NewSelect().
			Model((*models.TradeOffer)(nil)).
			Where("trade_session_id = ? AND user_id = ? AND type = ? AND card_id = ?",
				session.ID, userID, models.OfferTypeCard, card.ID).
			Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check existing offer: %w", err)
		}
		if exists {
			return ErrDuplicateOffer
		}

		offer := &models.TradeOffer{
			TradeSessionID: session.ID,
			UserID:         userID,
			Type:           models.OfferTypeCard,
			CardID:         &card.ID,
			Quantity:       1,
		}
		if _, err := tx.NewInsert().Model(offer).Exec(ctx); err != nil {
			return fmt.Errorf("failed to add card offer: %w", err)
		}
		return s.bumpVersion(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RemoveCard drops the caller's card offer.
func (s *Service) RemoveCard(ctx context.Context, userID, cardID string) (*models.TradeSession, error) {
	var session *models.TradeSession
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		session, err = s.activeSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoSession
		}

		result, err := tx.NewDelete().
			Model((*models.TradeOffer)(nil)).
			Where("trade_session_id = ? AND user_id = ? AND type = ? AND card_id = ?",
				session.ID, userID, models.OfferTypeCard, cardID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove card offer: %w", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return ErrOfferNotFound
		}
		return s.bumpVersion(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// AddItem offers a quantity of an item. Repeated adds of the same item
// accumulate into one offer.
func (s *Service) AddItem(ctx context.Context, userID, itemID string, quantity int64) (*models.TradeSession, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	var session *models.TradeSession
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		owned, err := s.items.GetCount(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}

		session, err = s.activeSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoSession
		}

		existing := new(models.TradeOffer)
		err = tx.NewSelect().
			Model(existing).
			Where("trade_session_id = ? AND user_id = ? AND type = ? AND item_id = ?",
				session.ID, userID, models.OfferTypeItem, itemID).
			Scan(ctx)
		switch {
		case err == nil:
			if owned < existing.Quantity+quantity {
				return ErrNotEnoughItems
			}
			_, err = tx.NewUpdate().
				Model((*models.TradeOffer)(nil)).
				Set("quantity = quantity + ?", quantity).
				Where("id = ?", existing.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to raise item offer: %w", err)
			}
		case errors.Is(err, sql.ErrNoRows):
			if owned < quantity {
				return ErrNotEnoughItems
			}
			offer := &models.TradeOffer{
				TradeSessionID: session.ID,
				UserID:         userID,
				Type:           models.OfferTypeItem,
				ItemID:         &itemID,
				Quantity:       quantity,
			}
			if _, err := tx.NewInsert().Model(offer).Exec(ctx); err != nil {
				return fmt.Errorf("failed to add item offer: %w", err)
			}
		default:
			return fmt.Errorf("failed to check existing offer: %w", err)
		}
		return s.bumpVersion(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RemoveItem lowers or deletes an item offer. quantity <= 0 removes the
// whole offer.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string, quantity int64) (*models.TradeSession, error) {
	var session *models.TradeSession
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var err error
		session, err = s.activeSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoSession
		}

		offer := new(models.TradeOffer)
		err = tx.NewSelect().
			Model(offer).
			Where("trade_session_id = ? AND user_id = ? AND type = ? AND item_id = ?",
				session.ID, userID, models.OfferTypeItem, itemID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOfferNotFound
			}
			return fmt.Errorf("failed to load item offer: %w", err)
		}

		if quantity > offer.Quantity {
			return ErrOfferNotFound
		}

		if quantity > 0 && quantity < offer.Quantity {
			_, err = tx.NewUpdate().
				Model((*models.TradeOffer)(nil)).
				Set("quantity = quantity - ?", quantity).
				Where("id = ?", offer.ID).
				Exec(ctx)
		} else {
			_, err = tx.NewDelete().
				Model((*models.TradeOffer)(nil)).
				Where("id = ?", offer.ID).
				Exec(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to remove item offer: %w", err)
		}
		return s.bumpVersion(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Accept records the caller's agreement at the session's current
// version. Any later offer change bumps the version and voids all
// accepts, so a party can never be bound to contents they did not see.
func (s *Service) Accept(ctx context.Context, userID string) (*AcceptState, error) {
	var state *AcceptState
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		session, err := s.activeSession(ctx, tx, userID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoSession
		}

		_, err = tx.NewDelete().
			Model((*models.TradeAccept)(nil)).
			Where("trade_session_id = ? AND user_id = ?", session.ID, userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear previous accept: %w", err)
		}

		accept := &models.TradeAccept{
			TradeSessionID: session.ID,
			UserID:         userID,
			Version:        session.Version,
		}
		if _, err := tx.NewInsert().Model(accept).Exec(ctx); err != nil {
			return fmt.Errorf("failed to record accept: %w", err)
		}

		count, err := tx.NewSelect().
			Model((*models.TradeAccept)(nil)).
			Where("trade_session_id = ? AND version = ?", session.ID, session.Version).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count accepts: %w", err)
		}

		state = &AcceptState{Session: session, BothAccepted: count >= 2}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Execute applies every offer of the session, all-or-nothing. The
// session row is locked, both accepts must still exist at the current
// version, and offers are re-validated fresh inside the transaction; a
// single invalid offer or a voided accept aborts the whole trade.
func (s *Service) Execute(ctx context.Context, sessionID int64) error {
	var user1ID string
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		session := new(models.TradeSession)
		err := tx.NewSelect().
			Model(session).
			Relation("Offers").
			Relation("Offers.Card").
			Where("ts.id = ?", sessionID).
			For("UPDATE OF ts").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNoSession
			}
			return fmt.Errorf("failed to load trade session: %w", err)
		}
		user1ID = session.User1ID

		// An offer change between Accept and Execute bumps the version
		// and voids the accepts, so both must still be present here.
		accepts, err := tx.NewSelect().
			Model((*models.TradeAccept)(nil)).
			Where("trade_session_id = ? AND version = ?", session.ID, session.Version).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count accepts: %w", err)
		}
		if accepts < 2 {
			return ErrAcceptsVoided
		}

		for _, offer := range session.Offers {
			if err := s.validateOffer(ctx, tx, offer); err != nil {
				return err
			}
		}

		for _, offer := range session.Offers {
			receiver := session.Counterparty(offer.UserID)
			if offer.Type == models.OfferTypeCard {
				_, err := tx.NewUpdate().
					Model((*models.Card)(nil)).
					Set("owner_id = ?", receiver).
					Where("id = ?", *offer.CardID).
					Exec(ctx)
				if err != nil {
					return fmt.Errorf("failed to transfer card: %w", err)
				}
			} else {
				if _, err := s.items.ChangeCount(ctx, tx, offer.UserID, *offer.ItemID, -offer.Quantity); err != nil {
					return err
				}
				if _, err := s.items.ChangeCount(ctx, tx, receiver, *offer.ItemID, offer.Quantity); err != nil {
					return err
				}
			}
		}

		return s.deleteSession(ctx, tx, session.ID)
	})
	if err != nil {
		return err
	}

	s.events.Log(ctx, user1ID, "", "trade_execute", map[string]any{"session": sessionID})
	return nil
}

// DirectTrade swaps two specific cards between two users in one
// transaction. Ownership and the job-slot guard are validated at commit
// time, after the interactive accept window.
func (s *Service) DirectTrade(ctx context.Context, user1ID, card1ID, user2ID, card2ID string) error {
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		card1, err := s.cards.GetOwnedCard(ctx, tx, user1ID, card1ID, true)
		if err != nil {
			return ErrOwnershipChanged
		}
		card2, err := s.cards.GetOwnedCard(ctx, tx, user2ID, card2ID, true)
		if err != nil {
			return ErrOwnershipChanged
		}

		for _, cardID := range []string{card1.ID, card2.ID} {
			usage, err := s.cards.CardUsage(ctx, tx, cardID)
			if err != nil {
				return err
			}
			if usage != "" {
				return cards.ErrCardInUse
			}
		}

		for _, transfer := range []struct {
			cardID string
			toID   string
		}{
			{card1.ID, user2ID},
			{card2.ID, user1ID},
		} {
			_, err := tx.NewUpdate().
				Model((*models.Card)(nil)).
				Set("owner_id = ?", transfer.toID).
				Where("id = ?", transfer.cardID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to transfer card: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Log(ctx, user1ID, "", "trade", map[string]any{
		"gave": card1ID, "received": card2ID, "with": user2ID,
	})
	return nil
}

// validateOffer re-checks one offer against live state.
func (s *Service) validateOffer(ctx context.Context, tx bun.IDB, offer *models.TradeOffer) error {
	switch offer.Type {
	case models.OfferTypeCard:
		if offer.Card == nil || offer.Card.Burned ||
			offer.Card.OwnerID == nil || *offer.Card.OwnerID != offer.UserID {
			return ErrOwnershipChanged
		}
		usage, err := s.cards.CardUsage(ctx, tx, *offer.CardID)
		if err != nil {
			return err
		}
		if usage != "" {
			return ErrOwnershipChanged
		}
	case models.OfferTypeItem:
		owned, err := s.items.GetCount(ctx, tx, offer.UserID, *offer.ItemID)
		if err != nil {
			return err
		}
		if owned < offer.Quantity {
			return ErrOwnershipChanged
		}
	default:
		return fmt.Errorf("unknown offer type %q", offer.Type)
	}
	return nil
}

// bumpVersion advances the optimistic version and voids every recorded
// accept.
func (s *Service) bumpVersion(ctx context.Context, tx bun.IDB, session *models.TradeSession) error {
	session.Version++
	session.LastUpdated = time.Now()

	_, err := tx.NewUpdate().
		Model((*models.TradeSession)(nil)).
		Set("version = ?", session.Version).
		Set("last_updated = ?", session.LastUpdated).
		Where("id = ?", session.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to bump session version: %w", err)
	}

	_, err = tx.NewDelete().
		Model((*models.TradeAccept)(nil)).
		Where("trade_session_id = ?", session.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to void accepts: %w", err)
	}
	return nil
}

func (s *Service) deleteSession(ctx context.Context, tx bun.IDB, sessionID int64) error {
	_, err := tx.NewDelete().
		Model((*models.TradeOffer)(nil)).
		Where("trade_session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete offers: %w", err)
	}
	_, err = tx.NewDelete().
		Model((*models.TradeAccept)(nil)).
		Where("trade_session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete accepts: %w", err)
	}
	_, err = tx.NewDelete().
		Model((*models.TradeSession)(nil)).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
