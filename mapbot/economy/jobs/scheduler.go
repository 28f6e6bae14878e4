package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/utils"
	"github.com/uptrace/bun"
	"golang.org/x/sync/semaphore"
)

const (
	resolveInterval    = 30 * time.Second
	motivationInterval = 10 * time.Minute

	// motivationRegenChance is rolled per eligible card per regen tick.
	motivationRegenChance = 0.2

	maxConcurrentNotifications = 4
)

// failureReasons is cosmetic flavor for failed rank attempts.
var failureReasons = []string{
	"it was not good enough.",
	"it got vetoed over excessive jumps.",
	"it got vetoed over looking like it was AI-generated.",
	"it got vetoed over looking like someone's first map.",
	"it got vetoed as the gds were deemed to be content bloat.",
	"it got vetoed and one of the bns got kicked from the bng over the nomination.",
	"they are blacklisted by nearly every bn.",
	"they insisted on using the most obnoxious keysounds.",
	"the song was previously hit by a DMCA.",
}

// Notifier delivers a job outcome to the channel the work was started
// from, falling back to a direct message. Implementations must not
// block forever; failures are logged and dropped.
type Notifier interface {
	NotifyJobOutcome(ctx context.Context, userID, guildID, channelID string, lines []string) error
}

// resolution is the rolled outcome of one finished job, decided before
// any row is touched.
type resolution struct {
	success      bool
	motivationUp bool
	mindblocked  bool
	demotivated  bool
	reason       string
}

// rollResolution rolls a finished job's outcome. On success, 70% odds
// of a motivation boost. On failure, 20% odds of a mindblock, else a
// further 50% of plain demotivation.
func rollResolution(r *rand.Rand, successChance float64) resolution {
	if r.Float64() < successChance {
		return resolution{success: true, motivationUp: r.Float64() < 0.7}
	}

	res := resolution{reason: failureReasons[r.Intn(len(failureReasons))]}
	if r.Float64() < 0.2 {
		res.mindblocked = true
	} else if r.Float64() < 0.5 {
		res.demotivated = true
	}
	return res
}

// applyToMotivation returns the card's new motivation after the
// resolution. A mindblock drops it by two and caps it at four; plain
// demotivation drops it by one. Floor is always one, ceiling ten.
func (res resolution) applyToMotivation(motivation int64) int64 {
	switch {
	case res.success && res.motivationUp:
		if motivation+1 > 10 {
			return 10
		}
		return motivation + 1
	case res.mindblocked:
		m := motivation - 2
		if m > 4 {
			m = 4
		}
		if m < 1 {
			m = 1
		}
		return m
	case res.demotivated:
		if motivation-1 < 1 {
			return 1
		}
		return motivation - 1
	default:
		return motivation
	}
}

type outcomeNotification struct {
	userID    string
	guildID   string
	channelID string
	lines     []string
}

// Scheduler runs the two background loops of the job system.
type Scheduler struct {
	service  *Service
	notifier Notifier
	sem      *semaphore.Weighted
}

func NewScheduler(service *Service, notifier Notifier) *Scheduler {
	return &Scheduler{
		service:  service,
		notifier: notifier,
		sem:      semaphore.NewWeighted(maxConcurrentNotifications),
	}
}

// Start registers both loops with the process manager.
func (sch *Scheduler) Start(bpm *utils.BackgroundProcessManager) {
	bpm.StartPeriodic("job-resolver", resolveInterval, sch.resolveFinished)
	bpm.StartPeriodic("motivation-regen", motivationInterval, sch.regenerateMotivation)
}

// resolveFinished settles every assignment whose active window has
// passed. Each assignment commits in its own transaction, so one
// failing resolution never holds up the rest of the batch. State
// transitions commit first; notifications go out after, bounded by the
// semaphore, and never retry.
func (sch *Scheduler) resolveFinished(ctx context.Context) {
	var finished []*models.JobAssignment
	err := sch.service.db.BunDB().NewSelect().
		Model(&finished).
		Where("ja.active_until <= ?", time.Now()).
		Scan(ctx)
	if err != nil {
		slog.Error("Failed to load finished jobs",
			slog.String("type", "job"),
			slog.Any("error", err))
		return
	}
	if len(finished) == 0 {
		return
	}

	slog.Info("Resolving finished jobs",
		slog.String("type", "job"),
		slog.Int("count", len(finished)))

	for _, job := range finished {
		notification, err := sch.resolveAssignment(ctx, job.UserID, job.Slot)
		if err != nil {
			slog.Error("Job resolution failed",
				slog.String("type", "job"),
				slog.String("user_id", job.UserID),
				slog.String("slot", job.Slot),
				slog.Any("error", err))
			continue
		}
		if notification != nil {
			sch.deliver(ctx, *notification)
		}
	}
}

// resolveAssignment settles one slot in its own short transaction. The
// row is re-read under lock; a slot already resolved by a concurrent
// tick is skipped silently.
func (sch *Scheduler) resolveAssignment(ctx context.Context, userID, slot string) (*outcomeNotification, error) {
	var notification *outcomeNotification
	err := sch.service.db.RunInSerializableTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		job := new(models.JobAssignment)
		err := tx.NewSelect().
			Model(job).
			Relation("Card").
			Where("ja.user_id = ? AND ja.slot = ?", userID, slot).
			For("UPDATE OF ja").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to load job assignment: %w", err)
		}
		if job.ActiveUntil == nil || job.ActiveUntil.After(time.Now()) {
			return nil
		}

		notification, err = sch.resolveOne(ctx, tx, job)
		return err
	})
	return notification, err
}

func (sch *Scheduler) resolveOne(ctx context.Context, tx bun.Tx, job *models.JobAssignment) (*outcomeNotification, error) {
	card := job.Card
	if card == nil {
		// Orphaned active slot; just reset it.
		return nil, sch.resetSlot(ctx, tx, job)
	}

	now := time.Now()
	chance := SuccessChance(card.JobMotivation, card.JobBaseEffort, card.Mindblocked(now))

	sch.service.mu.Lock()
	res := rollResolution(sch.service.rng, chance)
	sch.service.mu.Unlock()

	var lines []string
	newMotivation := res.applyToMotivation(card.JobMotivation)

	if res.success {
		gold := card.Effort(now)
		if gold < 0 {
			gold = 0
		}
		if _, err := sch.service.items.ChangeCount(ctx, tx, job.UserID, models.ItemGold, gold); err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf(
			"Your card `%s` (%s) just successfully ranked their map, you get %d gold",
			card.ID, card.Username, gold))
		if res.motivationUp {
			lines = append(lines, fmt.Sprintf(
				"The map was very well received and %s gained a motivation boost and is now at `%d/10` motivation",
				card.Username, newMotivation))
		}
	} else {
		lines = append(lines, fmt.Sprintf(
			"Your card `%s` (%s) unfortunately failed to rank their map because %s",
			card.ID, card.Username, res.reason))
		if res.mindblocked {
			lines = append(lines, fmt.Sprintf(
				"%s has become mindblocked, their motivation is now at `%d/10`",
				card.Username, newMotivation))
		} else if res.demotivated {
			lines = append(lines, fmt.Sprintf(
				"%s got demotivated and is now at `%d/10`",
				card.Username, newMotivation))
		}
	}

	update := tx.NewUpdate().
		Model((*models.Card)(nil)).
		Where("id = ?", card.ID)
	changed := false
	if newMotivation != card.JobMotivation {
		update = update.Set("job_motivation = ?", newMotivation)
		changed = true
	}
	if res.mindblocked {
		update = update.Set("job_mindblocked_until = ?", now.Add(mindblockDuration))
		changed = true
	}
	if changed {
		if _, err := update.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to update card after job: %w", err)
		}
	}

	if err := sch.resetSlot(ctx, tx, job); err != nil {
		return nil, err
	}

	return &outcomeNotification{
		userID:    job.UserID,
		guildID:   job.GuildID,
		channelID: job.ChannelID,
		lines:     lines,
	}, nil
}

func (sch *Scheduler) resetSlot(ctx context.Context, tx bun.Tx, job *models.JobAssignment) error {
	_, err := tx.NewUpdate().
		Model((*models.JobAssignment)(nil)).
		Set("started_at = NULL").
		Set("active_until = NULL").
		Where("user_id = ? AND slot = ?", job.UserID, job.Slot).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset job slot: %w", err)
	}
	return nil
}

func (sch *Scheduler) deliver(ctx context.Context, n outcomeNotification) {
	if sch.notifier == nil {
		return
	}
	if err := sch.sem.Acquire(ctx, 1); err != nil {
		return
	}
	go func() {
		defer sch.sem.Release(1)
		if err := sch.notifier.NotifyJobOutcome(ctx, n.userID, n.guildID, n.channelID, n.lines); err != nil {
			slog.Error("Failed to deliver job outcome",
				slog.String("type", "job"),
				slog.String("user_id", n.userID),
				slog.Any("error", err))
		}
	}()
}

// regenerateMotivation drifts under-motivated, non-mindblocked cards
// back toward the baseline of 7, one point at a 20% chance per tick.
func (sch *Scheduler) regenerateMotivation(ctx context.Context) {
	db := sch.service.db.BunDB()

	var cards []*models.Card
	err := db.NewSelect().
		Model(&cards).
		Where("job_motivation < 7 AND burned = false").
		Scan(ctx)
	if err != nil {
		slog.Error("Failed to load cards for motivation regen",
			slog.String("type", "job"),
			slog.Any("error", err))
		return
	}

	now := time.Now()
	regenerated := 0
	for _, card := range cards {
		if card.Mindblocked(now) {
			continue
		}

		sch.service.mu.Lock()
		regen := sch.service.rng.Float64() < motivationRegenChance
		sch.service.mu.Unlock()
		if !regen {
			continue
		}

		_, err := db.NewUpdate().
			Model((*models.Card)(nil)).
			Set("job_motivation = job_motivation + 1").
			Where("id = ? AND job_motivation < 7", card.ID).
			Exec(ctx)
		if err != nil {
			slog.Error("Failed to regenerate motivation",
				slog.String("type", "job"),
				slog.String("card_id", card.ID),
				slog.Any("error", err))
			continue
		}
		regenerated++
	}

	if regenerated > 0 {
		slog.Info("Regenerated motivation",
			slog.String("type", "job"),
			slog.Int("cards", regenerated))
	}
}
