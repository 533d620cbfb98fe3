// Package postgres implements repository.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/repository"
)

const (
	pgForeignKeyViolation  = "23503"
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

type Store struct {
	reader
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}

	store, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing pool. The pool is closed by Close.
func New(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("PostgreSQL store ready")

	return &Store{
		reader: reader{q: pool},
		pool:   pool,
		logger: logger,
	}, nil
}

// WithTx runs fn inside a read-committed transaction. Stock and status
// writes are conditional updates, so no stronger isolation is needed.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) (txErr error) {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pool.Begin: %w", err)
	}

	defer func() {
		if txErr != nil {
			rollbackErr := pgTx.Rollback(ctx)
			if rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				txErr = errors.Join(txErr, fmt.Errorf("tx.Rollback: %w", rollbackErr))
			}
		}
	}()

	if err := fn(&tx{reader: reader{q: pgTx}}); err != nil {
		return mapError(err)
	}

	if err := pgTx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("tx.Commit: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapError turns lock contention into domain.ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected) {
		return fmt.Errorf("%w: %w", domain.ErrConflict, err)
	}
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id UUID PRIMARY KEY,
	seller_id UUID NOT NULL,
	title TEXT NOT NULL,
	price NUMERIC(12, 2) NOT NULL,
	stock INTEGER NOT NULL CHECK (stock >= 0),
	avg_rating DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (avg_rating >= 0 AND avg_rating <= 5),
	comments_count INTEGER NOT NULL DEFAULT 0 CHECK (comments_count >= 0),
	category TEXT NOT NULL DEFAULT '',
	delivery_days INTEGER NOT NULL DEFAULT 0,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	buyer_id UUID NOT NULL,
	seller_id UUID NOT NULL,
	delivery_fee NUMERIC(12, 2) NOT NULL,
	total_price NUMERIC(14, 2) NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'shipped', 'delivered', 'cancelled')),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
	order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	item_id UUID NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity >= 1),
	unit_price NUMERIC(12, 2) NOT NULL,
	PRIMARY KEY (order_id, position)
);

CREATE TABLE IF NOT EXISTS delivery_profiles (
	seller_id UUID PRIMARY KEY,
	longitude DOUBLE PRECISION,
	latitude DOUBLE PRECISION,
	serviceable_cities TEXT[] NOT NULL DEFAULT '{}',
	max_delivery_range_km DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (max_delivery_range_km >= 0),
	base_delivery_fee NUMERIC(12, 2) NOT NULL,
	price_per_km NUMERIC(12, 2) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
	user_id UUID PRIMARY KEY,
	refund_count INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS comments (
	id UUID PRIMARY KEY,
	item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	buyer_id UUID NOT NULL,
	order_id UUID,
	body TEXT NOT NULL DEFAULT '',
	rating INTEGER CHECK (rating IS NULL OR (rating >= 1 AND rating <= 5)),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_seller_id ON items(seller_id);
CREATE INDEX IF NOT EXISTS idx_orders_buyer_id ON orders(buyer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_seller_id ON orders(seller_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_order_lines_item_id ON order_lines(item_id);
CREATE INDEX IF NOT EXISTS idx_comments_item_id ON comments(item_id, created_at);
`
