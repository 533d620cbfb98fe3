// Package inventory guards item stock. Every decrement is a conditional
// write in the store, so stock can never go below zero.
package inventory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/repository"
)

// Line is a quantity of one item.
type Line struct {
	ItemID   uuid.UUID
	Quantity int
}

// LinesOf returns the stock movements of an order's line items.
func LinesOf(items []domain.LineItem) []Line {
	return lo.Map(items, func(l domain.LineItem, _ int) Line {
		return Line{ItemID: l.ItemID, Quantity: l.Quantity}
	})
}

type Ledger struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(store repository.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger, now: time.Now}
}

// Reserve takes qty units of an item in its own unit of work.
func (l *Ledger) Reserve(ctx context.Context, itemID uuid.UUID, qty int) error {
	return l.store.WithTx(ctx, func(tx repository.Tx) error {
		return l.ReserveLines(ctx, tx, []Line{{ItemID: itemID, Quantity: qty}})
	})
}

// Restore puts qty units of an item back in its own unit of work.
func (l *Ledger) Restore(ctx context.Context, itemID uuid.UUID, qty int) error {
	return l.store.WithTx(ctx, func(tx repository.Tx) error {
		return l.RestoreLines(ctx, tx, []Line{{ItemID: itemID, Quantity: qty}})
	})
}

// ReserveLines reserves every line inside tx. The first shortfall aborts with
// an *domain.InsufficientStockError; the caller's rollback undoes the lines
// already taken. Lines are applied in item id order so that concurrent units
// of work lock rows in the same sequence.
func (l *Ledger) ReserveLines(ctx context.Context, tx repository.Tx, lines []Line) error {
	at := l.now().UTC()
	for _, line := range sortedLines(lines) {
		if err := tx.ReserveStock(ctx, line.ItemID, line.Quantity, at); err != nil {
			l.logger.Debug("Stock reservation rejected",
				zap.String("item_id", line.ItemID.String()),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
			return err
		}
	}
	return nil
}

// RestoreLines adds every line back inside tx.
func (l *Ledger) RestoreLines(ctx context.Context, tx repository.Tx, lines []Line) error {
	at := l.now().UTC()
	for _, line := range sortedLines(lines) {
		if err := tx.RestoreStock(ctx, line.ItemID, line.Quantity, at); err != nil {
			return err
		}
	}
	return nil
}

func sortedLines(lines []Line) []Line {
	sorted := slices.Clone(lines)
	slices.SortStableFunc(sorted, func(a, b Line) int {
		return strings.Compare(a.ItemID.String(), b.ItemID.String())
	})
	return sorted
}
