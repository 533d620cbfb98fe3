// Package sqlite is the primary repository.Store. It follows the single
// writer principle: one connection, one writer at a time.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/repository"
)

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// Store implements repository.Store on SQLite
type Store struct {
	reader
	db         *sql.DB
	logger     *zap.Logger
	maxRetries int
	mu         sync.Mutex // Mutex to ensure single writer
}

var _ repository.Store = (*Store)(nil)

// Open opens (and migrates) the database at path. maxRetries bounds how many
// times a unit of work is re-run after SQLITE_BUSY or SQLITE_LOCKED.
func Open(path string, maxRetries int, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=1&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite store opened", zap.String("path", path))

	return &Store{
		reader:     reader{q: db},
		db:         db,
		logger:     logger,
		maxRetries: maxRetries,
	}, nil
}

// WithTx runs fn in an immediate transaction. Transient lock errors re-run
// the whole unit of work with exponential backoff; after maxRetries the
// caller gets domain.ErrConflict.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt >= s.maxRetries {
			s.logger.Warn("Giving up on locked database",
				zap.Int("attempts", attempt+1),
				zap.Error(err),
			)
			return fmt.Errorf("sqlite.WithTx: %w", domain.ErrConflict)
		}

		s.logger.Debug("Database locked, retrying unit of work",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *Store) runTx(ctx context.Context, fn func(tx repository.Tx) error) (txErr error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}

	defer func() {
		if txErr != nil {
			if rollbackErr := sqlTx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	if err := fn(&tx{reader: reader{q: sqlTx}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func isTransient(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	seller_id TEXT NOT NULL,
	title TEXT NOT NULL,
	price TEXT NOT NULL,
	stock INTEGER NOT NULL,
	avg_rating REAL NOT NULL DEFAULT 0,
	comments_count INTEGER NOT NULL DEFAULT 0,
	category TEXT NOT NULL DEFAULT '',
	delivery_days INTEGER NOT NULL DEFAULT 0,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	CHECK(stock >= 0),
	CHECK(comments_count >= 0),
	CHECK(avg_rating >= 0 AND avg_rating <= 5)
);

CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	buyer_id TEXT NOT NULL,
	seller_id TEXT NOT NULL,
	delivery_fee TEXT NOT NULL,
	total_price TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	CHECK(status IN ('pending', 'accepted', 'shipped', 'delivered', 'cancelled'))
);

-- order lines keep a plain item id: the snapshot outlives catalog edits
CREATE TABLE IF NOT EXISTS order_lines (
	order_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	item_id TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price TEXT NOT NULL,
	PRIMARY KEY (order_id, position),
	FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
	CHECK(quantity >= 1)
);

CREATE TABLE IF NOT EXISTS delivery_profiles (
	seller_id TEXT PRIMARY KEY,
	longitude REAL,
	latitude REAL,
	serviceable_cities TEXT NOT NULL DEFAULT '[]',
	max_delivery_range_km REAL NOT NULL DEFAULT 0,
	base_delivery_fee TEXT NOT NULL,
	price_per_km TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	CHECK(max_delivery_range_km >= 0)
);

CREATE TABLE IF NOT EXISTS accounts (
	user_id TEXT PRIMARY KEY,
	refund_count INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	item_id TEXT NOT NULL,
	buyer_id TEXT NOT NULL,
	order_id TEXT,
	body TEXT NOT NULL DEFAULT '',
	rating INTEGER,
	created_at TEXT NOT NULL,
	FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE,
	CHECK(rating IS NULL OR (rating >= 1 AND rating <= 5))
);

CREATE INDEX IF NOT EXISTS idx_items_seller_id ON items(seller_id);
CREATE INDEX IF NOT EXISTS idx_orders_buyer_id ON orders(buyer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_seller_id ON orders(seller_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_order_lines_item_id ON order_lines(item_id);
CREATE INDEX IF NOT EXISTS idx_comments_item_id ON comments(item_id, created_at);
`
