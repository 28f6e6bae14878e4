// Package rewards hands out the daily gold stipend.
package rewards

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
	"github.com/uptrace/bun"
)

const (
	dailyBaseGold = 50
	dailyRandGold = 200
)

type Service struct {
	db       *database.DB
	items    *inventory.Service
	timeouts *timeout.Service
	events   *eventlog.Service

	mu  sync.Mutex
	rng *rand.Rand
}

func NewService(db *database.DB, items *inventory.Service, timeouts *timeout.Service, events *eventlog.Service) *Service {
	return &Service{
		db:       db,
		items:    items,
		timeouts: timeouts,
		events:   events,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AlreadyClaimedError means the daily was taken earlier today; it
// resets at midnight.
type AlreadyClaimedError struct {
	Remaining time.Duration
}

func (e *AlreadyClaimedError) Error() string {
	return "daily reward already claimed today"
}

// rollDailyAmount is 50 plus up to 199 extra gold.
func rollDailyAmount(r *rand.Rand) int64 {
	return dailyBaseGold + int64(r.Intn(dailyRandGold))
}

// ClaimDaily credits the daily reward once per calendar day.
func (s *Service) ClaimDaily(ctx context.Context, userID string) (int64, error) {
	var amount int64
	err := s.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		view, err := s.timeouts.Get(ctx, tx, userID, timeout.TypeDaily, true)
		if err != nil {
			return err
		}
		if view.Blocked() {
			return &AlreadyClaimedError{Remaining: view.Remaining}
		}

		s.mu.Lock()
		amount = rollDailyAmount(s.rng)
		s.mu.Unlock()

		if _, err := s.items.ChangeCount(ctx, tx, userID, models.ItemGold, amount); err != nil {
			return err
		}
		return s.timeouts.Consume(ctx, tx, userID, view)
	})
	if err != nil {
		return 0, err
	}

	s.events.Log(ctx, userID, "", "daily", map[string]any{"amount": amount})
	return amount, nil
}
