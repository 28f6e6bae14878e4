package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
)

type recordingNotifier struct {
	calls int
}

func (n *recordingNotifier) NotifyJobOutcome(ctx context.Context, userID, guildID, channelID string, lines []string) error {
	n.calls++
	return nil
}

func newMockScheduler(t *testing.T) (*Scheduler, *recordingNotifier, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	db := database.NewWithSQL(sqldb)
	t.Cleanup(db.Close)

	inv := inventory.NewService()
	notifier := &recordingNotifier{}
	return NewScheduler(NewService(db, cards.NewService(inv), inv), notifier), notifier, mock
}

func TestResolveFinishedIsolatesFailures(t *testing.T) {
	sch, notifier, mock := newMockScheduler(t)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM "job_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "slot", "active_until"}).
			AddRow("alice", "slot1", past).
			AddRow("bob", "slot1", past))

	// alice's slot errors under lock and rolls back. bob's slot still
	// gets its own transaction afterwards.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "job_assignments" (.+) FOR UPDATE OF ja`).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "job_assignments" (.+) FOR UPDATE OF ja`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "slot", "active_until"}).
			AddRow("bob", "slot1", future))
	mock.ExpectCommit()

	sch.resolveFinished(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("batch did not continue past the failure: %v", err)
	}
	if notifier.calls != 0 {
		t.Errorf("notifier called %d times, want 0", notifier.calls)
	}
}
