package gamble

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/uptrace/bun"
)

const (
	MinBet = 1
	MaxBet = 100
)

var ErrBetOutOfRange = errors.New("bet must be between 1 and 100 gold")

type PlayResult struct {
	Symbols    []string
	Multiplier int64
	Winnings   int64
}

// Won reports whether the spin paid at least the stake back.
func (r *PlayResult) Won() bool {
	return r.Multiplier >= 1
}

type Service struct {
	db     *database.DB
	items  *inventory.Service
	events *eventlog.Service

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(db *database.DB, items *inventory.Service, events *eventlog.Service) *Service {
	return &Service{
		db:     db,
		items:  items,
		events: events,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Play spins the reels and settles the bet. The balance is re-checked
// inside the transaction, so a spend racing the initial eligibility
// check surfaces as an InsufficientBalanceError instead of a negative
// balance.
func (s *Service) Play(ctx context.Context, userID string, bet int64) (*PlayResult, error) {
	if bet < MinBet || bet > MaxBet {
		return nil, ErrBetOutOfRange
	}

	s.mu.Lock()
	symbols := []string{Spin(s.rng), Spin(s.rng), Spin(s.rng)}
	s.mu.Unlock()

	multiplier := Multiplier(CountCombos(symbols))
	winnings := bet * multiplier

	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := s.items.ChangeCount(ctx, tx, userID, models.ItemGold, winnings-bet)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Log(ctx, userID, "", "gamble", map[string]any{
		"bet":      bet,
		"winnings": winnings,
		"roll":     symbols,
	})

	return &PlayResult{
		Symbols:    symbols,
		Multiplier: multiplier,
		Winnings:   winnings,
	}, nil
}
