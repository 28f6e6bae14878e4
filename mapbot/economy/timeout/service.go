// Package timeout tracks per-user command cooldowns, the speedup
// effects that shorten them and the free-claim bypass.
package timeout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/uptrace/bun"
)

// Cooldown types.
const (
	TypeDrop  = "DROP"
	TypeClaim = "CLAIM"
	TypeDaily = "DAILY"
)

const (
	dropCooldown  = 30 * time.Minute
	claimCooldown = 10 * time.Minute

	// speedupFactor scales the base duration while a matching speedup
	// effect is live.
	speedupFactor = 0.5
)

// ErrStillActive is returned by Consume when the cooldown has not
// elapsed and no bypass applies.
var ErrStillActive = errors.New("cooldown still active")

// View is the cooldown state of one user for one command type at a
// fixed instant. Remaining is what gates the command and already
// reflects the free-claim bypass; ActualRemaining is the raw
// elapsed-time reading so callers can tell whether Consume will spend
// a consumable instead of resetting the timestamp.
type View struct {
	Type            string
	Remaining       time.Duration
	ActualRemaining time.Duration
	SpeedupActive   bool
	FreeClaimBypass bool
}

// Blocked reports whether the command is still on cooldown.
func (v View) Blocked() bool {
	return v.Remaining > 0
}

// actualRemaining computes the raw cooldown left for a non-daily type:
// the base duration (halved under speedup) minus elapsed time.
func actualRemaining(lastUsed, now time.Time, base time.Duration, speedup bool) time.Duration {
	duration := base
	if speedup {
		duration = time.Duration(float64(base) * speedupFactor)
	}
	left := duration - now.Sub(lastUsed)
	if left < 0 {
		return 0
	}
	return left
}

// dailyRemaining implements the calendar-day reset: the daily action
// becomes available at local midnight, not a rolling 24 hours after
// last use.
func dailyRemaining(lastUsed, now time.Time) time.Duration {
	lastDay := time.Date(lastUsed.Year(), lastUsed.Month(), lastUsed.Day(), 0, 0, 0, 0, lastUsed.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if today.After(lastDay) {
		return 0
	}
	left := 24*time.Hour - now.Sub(lastUsed)
	if left < 0 {
		return 0
	}
	return left
}

type Service struct {
	items *inventory.Service
	now   func() time.Time
}

func NewService(items *inventory.Service) *Service {
	return &Service{items: items, now: time.Now}
}

// Get returns the cooldown view for one user and command type. Reads
// through tx so that the gating read and the later Consume share one
// transaction. lockForWrite takes a row lock on the timeout so two
// concurrent commands cannot both read the cooldown as elapsed; pass
// false only for display reads outside a gating transaction.
func (s *Service) Get(ctx context.Context, tx bun.IDB, userID, cooldownType string, lockForWrite bool) (View, error) {
	now := s.now()
	view := View{Type: cooldownType}

	timeout := new(models.CommandTimeout)
	query := tx.NewSelect().
		Model(timeout).
		Where("user_id = ? AND command = ?", userID, cooldownType)
	if lockForWrite {
		query = query.For("UPDATE")
	}
	err := query.Scan(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return View{}, fmt.Errorf("failed to read cooldown: %w", err)
		}
		timeout = nil
	}

	switch cooldownType {
	case TypeDrop, TypeClaim:
		effect := models.EffectDropSpeedup
		base := dropCooldown
		if cooldownType == TypeClaim {
			effect = models.EffectClaimSpeedup
			base = claimCooldown
		}
		speedup, err := s.effectActive(ctx, tx, userID, effect, now)
		if err != nil {
			return View{}, err
		}
		view.SpeedupActive = speedup
		if timeout != nil {
			view.ActualRemaining = actualRemaining(timeout.LastUsed, now, base, speedup)
		}
		if cooldownType == TypeClaim {
			count, err := s.items.GetCount(ctx, tx, userID, models.ItemFreeClaim)
			if err != nil {
				return View{}, err
			}
			view.FreeClaimBypass = count > 0
		}
	case TypeDaily:
		if timeout != nil {
			view.ActualRemaining = dailyRemaining(timeout.LastUsed, now)
		}
	default:
		return View{}, fmt.Errorf("unknown cooldown type %q", cooldownType)
	}

	view.Remaining = view.ActualRemaining
	if view.FreeClaimBypass {
		view.Remaining = 0
	}
	return view, nil
}

// Consume finalizes the action the view gated. While a free-claim
// bypass covers an unelapsed cooldown it decrements the consumable and
// leaves the timestamp alone; otherwise it records a fresh last-used
// timestamp. Must run in the same transaction as the Get that produced
// the view.
func (s *Service) Consume(ctx context.Context, tx bun.IDB, userID string, view View) error {
	if view.Blocked() {
		return ErrStillActive
	}

	if view.FreeClaimBypass && view.ActualRemaining > 0 {
		_, err := s.items.ChangeCount(ctx, tx, userID, models.ItemFreeClaim, -1)
		if err != nil {
			return fmt.Errorf("failed to spend free claim: %w", err)
		}
		return nil
	}

	_, err := tx.NewInsert().
		Model(&models.CommandTimeout{
			UserID:   userID,
			Type:     view.Type,
			LastUsed: s.now(),
		}).
		On("CONFLICT (user_id, command) DO UPDATE").
		Set("last_used = EXCLUDED.last_used").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume cooldown: %w", err)
	}
	return nil
}

// ExtendEffect activates or extends a speedup effect by d. An already
// active effect stacks from its current expiry, an expired one restarts
// from now.
func (s *Service) ExtendEffect(ctx context.Context, tx bun.IDB, userID, effect string, d time.Duration) (time.Time, error) {
	now := s.now()

	existing := new(models.UserEffect)
	err := tx.NewSelect().
		Model(existing).
		Where("user_id = ? AND effect = ?", userID, effect).
		Scan(ctx)

	from := now
	if err == nil && existing.ActiveUntil.After(now) {
		from = existing.ActiveUntil
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("failed to read effect: %w", err)
	}

	until := from.Add(d)
	_, err = tx.NewInsert().
		Model(&models.UserEffect{
			UserID:      userID,
			Effect:      effect,
			ActiveUntil: until,
		}).
		On("CONFLICT (user_id, effect) DO UPDATE").
		Set("active_until = EXCLUDED.active_until").
		Exec(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to write effect: %w", err)
	}
	return until, nil
}

func (s *Service) effectActive(ctx context.Context, db bun.IDB, userID, effect string, now time.Time) (bool, error) {
	ue := new(models.UserEffect)
	err := db.NewSelect().
		Model(ue).
		Where("user_id = ? AND effect = ?", userID, effect).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read effect: %w", err)
	}
	return ue.ActiveUntil.After(now), nil
}
