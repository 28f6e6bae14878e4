package drops

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
	"github.com/mapbot-dev/mapbot/mapbot/economy/timeout"
	"github.com/mapbot-dev/mapbot/mapbot/services/eventlog"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	db := database.NewWithSQL(sqldb)
	t.Cleanup(db.Close)

	svc := &Service{
		db:       db,
		timeouts: timeout.NewService(inventory.NewService()),
		events:   eventlog.NewService(db.BunDB()),
		rng:      rand.New(rand.NewSource(1)),
	}
	return svc, mock
}

// expectClaimGate queues the cooldown reads Claim issues before it
// touches the card: the locked timeout row, the speedup effect and the
// free-claim balance. All empty, so the claim is not gated.
func expectClaimGate(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT (.+) FROM "command_timeouts" (.+) FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "command", "last_used"}))
	mock.ExpectQuery(`SELECT (.+) FROM "user_effects"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "effect", "active_until"}))
	mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "item_id", "amount"}))
}

func cardRow(ownerID *string, droppedByID string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "mapper_id", "owner_id", "dropped_by_id", "created_at"}).
		AddRow("k3x", int64(7), ownerID, droppedByID, createdAt)
}

func TestClaimSingleWinner(t *testing.T) {
	ctx := context.Background()

	t.Run("open card is claimed and the cooldown spent", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectBegin()
		expectClaimGate(mock)
		mock.ExpectQuery(`SELECT (.+) FROM "cards" (.+) FOR UPDATE OF c`).
			WillReturnRows(cardRow(nil, "carol", time.Now()))
		mock.ExpectExec(`UPDATE "cards"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "command_timeouts"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := svc.Claim(ctx, "alice", "k3x")
		if err != nil {
			t.Fatalf("Claim returned %v", err)
		}
		if result.Outcome != OutcomeClaimed {
			t.Errorf("outcome = %v, want OutcomeClaimed", result.Outcome)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unexpected queries: %v", err)
		}
	})

	t.Run("card already claimed by someone else", func(t *testing.T) {
		svc, mock := newMockService(t)
		owner := "bob"
		mock.ExpectBegin()
		expectClaimGate(mock)
		mock.ExpectQuery(`SELECT (.+) FROM "cards" (.+) FOR UPDATE OF c`).
			WillReturnRows(cardRow(&owner, "carol", time.Now()))
		mock.ExpectCommit()

		result, err := svc.Claim(ctx, "alice", "k3x")
		if err != nil {
			t.Fatalf("Claim returned %v", err)
		}
		if result.Outcome != OutcomeAlreadyClaimed {
			t.Errorf("outcome = %v, want OutcomeAlreadyClaimed", result.Outcome)
		}
		// The loser must not write anything: no ownership change and no
		// cooldown spend.
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("losing claim issued writes: %v", err)
		}
	})

	t.Run("expired card cannot be claimed", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectBegin()
		expectClaimGate(mock)
		mock.ExpectQuery(`SELECT (.+) FROM "cards" (.+) FOR UPDATE OF c`).
			WillReturnRows(cardRow(nil, "carol", time.Now().Add(-2*time.Minute)))
		mock.ExpectRollback()

		_, err := svc.Claim(ctx, "alice", "k3x")
		if !errors.Is(err, ErrCardExpired) {
			t.Fatalf("Claim error = %v, want ErrCardExpired", err)
		}
	})
}
