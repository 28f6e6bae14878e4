package items

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/mapbot-dev/mapbot/mapbot/database"
	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/mapbot-dev/mapbot/mapbot/database/repositories"
	"github.com/mapbot-dev/mapbot/mapbot/economy/drops"
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
	return NewService(db, inventory.NewService(), nil, nil, eventlog.NewService(db.BunDB())), mock
}

func shopItemRow(id string, price int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "shop_price"}).AddRow(id, id, price)
}

func goldRow(amount int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"user_id", "item_id", "amount"}).AddRow("alice", "gold", amount)
}

func TestBuy(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the full price and credits the quantity", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM "items"`).WillReturnRows(shopItemRow("drop speedup", 300))
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(goldRow(1000))
		mock.ExpectExec(`UPDATE "inventory_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "item_id", "amount"}))
		mock.ExpectExec(`INSERT INTO "inventory_entries"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		receipt, err := svc.Buy(ctx, "alice", "drop speedup", 2)
		if err != nil {
			t.Fatalf("Buy returned %v", err)
		}
		if receipt.TotalGold != 600 || receipt.Quantity != 2 {
			t.Errorf("receipt = %d gold for %d, want 600 for 2", receipt.TotalGold, receipt.Quantity)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unexpected queries: %v", err)
		}
	})

	t.Run("insufficient gold rolls the purchase back", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM "items"`).WillReturnRows(shopItemRow("superdrop", 2500))
		mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).WillReturnRows(goldRow(100))
		mock.ExpectRollback()

		_, err := svc.Buy(ctx, "alice", "superdrop", 1)
		var insufficient *inventory.InsufficientBalanceError
		if !errors.As(err, &insufficient) {
			t.Fatalf("Buy error = %v, want InsufficientBalanceError", err)
		}
		if insufficient.Need != 2500 || insufficient.Have != 100 {
			t.Errorf("need = %d, have = %d; want 2500, 100", insufficient.Need, insufficient.Have)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("purchase wrote despite the failed debit: %v", err)
		}
	})

	t.Run("unsold item is rejected", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM "items"`).WillReturnRows(shopItemRow("gold", 0))
		mock.ExpectRollback()

		if _, err := svc.Buy(ctx, "alice", "gold", 1); !errors.Is(err, ErrNotForSale) {
			t.Fatalf("Buy error = %v, want ErrNotForSale", err)
		}
	})

	t.Run("non-positive quantity is rejected", func(t *testing.T) {
		svc, _ := newMockService(t)
		if _, err := svc.Buy(ctx, "alice", "superdrop", 0); err == nil {
			t.Fatal("Buy accepted a zero quantity")
		}
	})
}

func TestUseKeepsItemWhenSuperdropFails(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	db := database.NewWithSQL(sqldb)
	t.Cleanup(db.Close)

	inv := inventory.NewService()
	events := eventlog.NewService(db.BunDB())
	dropSvc := drops.NewService(db,
		repositories.NewMapperRepository(db.BunDB()),
		repositories.NewCardRepository(db.BunDB()),
		repositories.NewSequenceRepository(db.BunDB()),
		timeout.NewService(inv), events, nil)
	svc := NewService(db, inv, timeout.NewService(inv), dropSvc, events)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "inventory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "item_id", "amount"}).
			AddRow("alice", models.ItemSuperdrop, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "mappers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	if _, err := svc.Use(context.Background(), "alice", models.ItemSuperdrop); !errors.Is(err, drops.ErrNoMappers) {
		t.Fatalf("Use error = %v, want ErrNoMappers", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("failed mint still consumed the item: %v", err)
	}
}
