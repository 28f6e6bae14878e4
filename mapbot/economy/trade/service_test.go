package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/economy/cards"
	"github.com/mapbot-dev/mapbot/mapbot/economy/inventory"
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

	items := inventory.NewService()
	return NewService(db, cards.NewService(items), items, eventlog.NewService(db.BunDB())), mock
}

func sessionRow(version int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user1_id", "user2_id", "channel_id", "version", "last_updated"}).
		AddRow(int64(1), "alice", "bob", "chan", version, time.Now())
}

func noOfferRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "trade_session_id", "user_id", "type", "card_id", "item_id", "quantity"})
}

func acceptCount(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestExecuteRequiresBothAcceptsAtCurrentVersion(t *testing.T) {
	svc, mock := newMockService(t)

	// An offer change after the accepts bumped the version from 2 to 3,
	// leaving only one accept recorded against version 3.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "trade_sessions" (.+) FOR UPDATE OF ts`).WillReturnRows(sessionRow(3))
	mock.ExpectQuery(`SELECT (.+) FROM "trade_offers"`).WillReturnRows(noOfferRows())
	mock.ExpectQuery(`SELECT count\(\*\) FROM "trade_accepts"`).WillReturnRows(acceptCount(1))
	mock.ExpectRollback()

	err := svc.Execute(context.Background(), 1)
	if !errors.Is(err, ErrAcceptsVoided) {
		t.Fatalf("Execute error = %v, want ErrAcceptsVoided", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestExecuteAbortsWholeTradeOnInvalidOffer(t *testing.T) {
	svc, mock := newMockService(t)

	offers := noOfferRows().AddRow(int64(1), int64(1), "alice", "item", nil, "gold", int64(500))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "trade_sessions" (.+) FOR UPDATE OF ts`).WillReturnRows(sessionRow(0))
	mock.ExpectQuery(`SELECT (.+) FROM "trade_offers"`).WillReturnRows(offers)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "trade_accepts"`).WillReturnRows(acceptCount(2))
	// Offer validation re-reads alice's gold: not enough anymore, so no
	// transfer may have happened by the time the tx rolls back.
	mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "item_id", "amount"}).AddRow("alice", "gold", int64(20)))
	mock.ExpectRollback()

	err := svc.Execute(context.Background(), 1)
	if !errors.Is(err, ErrOwnershipChanged) {
		t.Fatalf("Execute error = %v, want ErrOwnershipChanged", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("trade applied writes despite the invalid offer: %v", err)
	}
}

func TestExecuteTearsDownSession(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "trade_sessions" (.+) FOR UPDATE OF ts`).WillReturnRows(sessionRow(2))
	mock.ExpectQuery(`SELECT (.+) FROM "trade_offers"`).WillReturnRows(noOfferRows())
	mock.ExpectQuery(`SELECT count\(\*\) FROM "trade_accepts"`).WillReturnRows(acceptCount(2))
	mock.ExpectExec(`DELETE FROM "trade_offers"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "trade_accepts"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "trade_sessions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.Execute(context.Background(), 1); err != nil {
		t.Fatalf("Execute returned %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}
