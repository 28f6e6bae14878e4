package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
)

const (
	refreshInterval = 5 * time.Minute
	entryLimit      = 10
)

// Entry is one leaderboard row.
type Entry struct {
	UserID   string `bun:"user_id"`
	Username string `bun:"username"`
	Value    int64  `bun:"value"`
}

// Snapshot holds the cached standings across all boards. RefreshedAt
// is the time of the last successful refresh.
type Snapshot struct {
	Gold        []Entry
	Cards       []Entry
	BurnValue   []Entry
	RefreshedAt time.Time
}

// Service serves leaderboard standings from a process-wide snapshot
// that a background process refreshes on an interval. Reads never hit
// the database, and a failed refresh keeps the previous snapshot.
type Service struct {
	db     *bun.DB
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewService(db *bun.DB) *Service {
	return &Service{
		db:     db,
		logger: slog.With(slog.String("service", "leaderboard")),
	}
}

// Start performs an initial refresh and registers the periodic one.
func (s *Service) Start(ctx context.Context, bpm *utils.BackgroundProcessManager) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial leaderboard refresh failed",
			slog.String("error", err.Error()))
	}
	bpm.StartPeriodic("leaderboard-refresh", refreshInterval, func(ctx context.Context) {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("leaderboard refresh failed, keeping previous snapshot",
				slog.String("error", err.Error()))
		}
	})
}

// Snapshot returns the current standings. The returned slices must
// not be mutated.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh rebuilds every board from the database. The snapshot is
// swapped only after all queries succeed.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()

	gold, err := s.queryGold(ctx)
	if err != nil {
		return fmt.Errorf("failed to query gold standings: %w", err)
	}
	cards, err := s.queryCardCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to query card counts: %w", err)
	}
	burn, err := s.queryBurnValue(ctx)
	if err != nil {
		return fmt.Errorf("failed to query collection values: %w", err)
	}

	s.mu.Lock()
	s.snapshot = Snapshot{
		Gold:        gold,
		Cards:       cards,
		BurnValue:   burn,
		RefreshedAt: time.Now(),
	}
	s.mu.Unlock()

	s.logger.Debug("leaderboard refreshed",
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Service) queryGold(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.NewSelect().
		Model((*models.InventoryEntry)(nil)).
		ColumnExpr("ie.user_id AS user_id").
		ColumnExpr("u.username AS username").
		ColumnExpr("ie.amount AS value").
		Join("JOIN users AS u ON u.id = ie.user_id").
		Where("ie.item_id = ?", models.ItemGold).
		Where("ie.amount > 0").
		OrderExpr("ie.amount DESC").
		Limit(entryLimit).
		Scan(ctx, &entries)
	return entries, err
}

func (s *Service) queryCardCounts(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.NewSelect().
		Model((*models.Card)(nil)).
		ColumnExpr("c.owner_id AS user_id").
		ColumnExpr("u.username AS username").
		ColumnExpr("COUNT(*) AS value").
		Join("JOIN users AS u ON u.id = c.owner_id").
		Where("c.owner_id IS NOT NULL").
		Where("c.burned = FALSE").
		GroupExpr("c.owner_id, u.username").
		OrderExpr("value DESC").
		Limit(entryLimit).
		Scan(ctx, &entries)
	return entries, err
}

func (s *Service) queryBurnValue(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := s.db.NewSelect().
		Model((*models.Card)(nil)).
		ColumnExpr("c.owner_id AS user_id").
		ColumnExpr("u.username AS username").
		ColumnExpr("SUM(c.burn_value) AS value").
		Join("JOIN users AS u ON u.id = c.owner_id").
		Where("c.owner_id IS NOT NULL").
		Where("c.burned = FALSE").
		GroupExpr("c.owner_id, u.username").
		OrderExpr("value DESC").
		Limit(entryLimit).
		Scan(ctx, &entries)
	return entries, err
}
