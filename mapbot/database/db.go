package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/mapbot-dev/mapbot/mapbot/database/models"
	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	var conn net.Conn
	var err error

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = net.DialTimeout("tcp", addr, defaultConnTimeout)
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, bunDB: newBunDB(cfg)}, nil
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func newBunDB(cfg DBConfig) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewWithSQL wraps an existing database/sql handle. Tests use this to
// back the bun layer with a mock driver; there is no pgx pool.
func NewWithSQL(sqldb *sql.DB) *DB {
	return &DB{bunDB: bun.NewDB(sqldb, pgdialect.New())}
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

// RunInSerializableTx runs fn inside a serializable transaction. All
// economy mutations go through this so concurrent claims, spends and
// trades cannot both observe stale state and commit.
func (db *DB) RunInSerializableTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return db.bunDB.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
}

func (db *DB) Close() {
	if db.bunDB != nil {
		db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitializeSchema creates all tables and seeds the static rows the
// economy depends on: the condition chain, the item catalog and the
// card id sequence counter.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []any{
		(*models.User)(nil),
		(*models.Mapper)(nil),
		(*models.WishlistEntry)(nil),
		(*models.CardCondition)(nil),
		(*models.Card)(nil),
		(*models.Item)(nil),
		(*models.InventoryEntry)(nil),
		(*models.CommandTimeout)(nil),
		(*models.UserEffect)(nil),
		(*models.JobAssignment)(nil),
		(*models.TradeSession)(nil),
		(*models.TradeOffer)(nil),
		(*models.TradeAccept)(nil),
		(*models.CardSequence)(nil),
		(*models.GuildSettings)(nil),
		(*models.EventLog)(nil),
	}

	for _, table := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(table).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", table, err)
		}
	}

	if err := db.seed(ctx); err != nil {
		return err
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Int("tables", len(tables)))
	return nil
}

func (db *DB) seed(ctx context.Context) error {
	for _, condition := range models.DefaultConditions() {
		if _, err := db.bunDB.NewInsert().
			Model(condition).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed condition %s: %w", condition.ID, err)
		}
	}

	for _, item := range models.DefaultItems() {
		if _, err := db.bunDB.NewInsert().
			Model(item).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed item %s: %w", item.ID, err)
		}
	}

	sequence := &models.CardSequence{ID: 0, Value: 0}
	if _, err := db.bunDB.NewInsert().
		Model(sequence).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed card sequence: %w", err)
	}

	return nil
}
