package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func balanceRow(amount int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "item_id", "amount"}).
		AddRow("alice", "gold", amount)
}

func noBalanceRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "item_id", "amount"})
}

func TestChangeCountGuardsNegativeBalance(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	t.Run("debit past zero rejected before the write", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(balanceRow(5))

		previous, err := svc.ChangeCount(ctx, db, "alice", "gold", -10)
		var insufficient *InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			t.Fatalf("ChangeCount error = %v, want InsufficientBalanceError", err)
		}
		if previous != 5 || insufficient.Have != 5 || insufficient.Need != 10 {
			t.Errorf("previous = %d, have = %d, need = %d; want 5, 5, 10",
				previous, insufficient.Have, insufficient.Need)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unexpected queries: %v", err)
		}
	})

	t.Run("debit with no row at all rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(noBalanceRow())

		_, err := svc.ChangeCount(ctx, db, "alice", "gold", -1)
		var insufficient *InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			t.Fatalf("ChangeCount error = %v, want InsufficientBalanceError", err)
		}
		if insufficient.Have != 0 {
			t.Errorf("have = %d, want 0", insufficient.Have)
		}
	})

	t.Run("update losing the balance race rejected", func(t *testing.T) {
		// The read saw enough balance but the guarded UPDATE matched no
		// row, the way a concurrent debit of the same row looks.
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(balanceRow(20))
		mock.ExpectExec(`UPDATE "inventory_entries"`).WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := svc.ChangeCount(ctx, db, "alice", "gold", -10)
		var insufficient *InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			t.Fatalf("ChangeCount error = %v, want InsufficientBalanceError", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unexpected queries: %v", err)
		}
	})

	t.Run("credit creates a missing row", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(noBalanceRow())
		mock.ExpectExec(`INSERT INTO "inventory_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))

		previous, err := svc.ChangeCount(ctx, db, "alice", "gold", 100)
		if err != nil {
			t.Fatalf("ChangeCount returned %v", err)
		}
		if previous != 0 {
			t.Errorf("previous = %d, want 0", previous)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unexpected queries: %v", err)
		}
	})

	t.Run("debit leaving a non-negative balance passes", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(balanceRow(10))
		mock.ExpectExec(`UPDATE "inventory_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))

		previous, err := svc.ChangeCount(ctx, db, "alice", "gold", -10)
		if err != nil {
			t.Fatalf("ChangeCount returned %v", err)
		}
		if previous != 10 {
			t.Errorf("previous = %d, want 10", previous)
		}
	})
}

func TestGetCountMissingRowIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(noBalanceRow())

	count, err := NewService().GetCount(context.Background(), db, "alice", "gold")
	if err != nil {
		t.Fatalf("GetCount returned %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
