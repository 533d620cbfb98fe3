package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/repository"
	"marketplace-service/internal/repository/memory"
	"marketplace-service/internal/repository/storetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T, stocks ...int) (*Ledger, *memory.Store, []*domain.Item) {
	t.Helper()
	store := memory.NewStore()
	seller := uuid.New()
	items := make([]*domain.Item, 0, len(stocks))
	for _, stock := range stocks {
		item := storetest.FakeItem(seller, stock)
		require.NoError(t, store.WithTx(context.Background(), func(tx repository.Tx) error {
			return tx.InsertItem(context.Background(), item)
		}))
		items = append(items, item)
	}
	return NewLedger(store, zap.NewNop()), store, items
}

func TestLedger_ReserveAndRestore(t *testing.T) {
	ledger, store, items := setup(t, 5)
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, items[0].ID, 3))
	storetest.RequireStock(t, store, items[0].ID, 2)

	err := ledger.Reserve(ctx, items[0].ID, 3)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	storetest.RequireStock(t, store, items[0].ID, 2)

	require.NoError(t, ledger.Restore(ctx, items[0].ID, 3))
	storetest.RequireStock(t, store, items[0].ID, 5)
}

func TestLedger_RejectsBadInput(t *testing.T) {
	ledger, _, items := setup(t, 5)
	ctx := context.Background()

	assert.ErrorIs(t, ledger.Reserve(ctx, items[0].ID, 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Restore(ctx, items[0].ID, -1), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Reserve(ctx, uuid.New(), 1), domain.ErrNotFound)
	assert.ErrorIs(t, ledger.Restore(ctx, uuid.New(), 1), domain.ErrNotFound)
}

func TestLedger_ReserveLinesIsAllOrNothing(t *testing.T) {
	ledger, store, items := setup(t, 4, 1)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx repository.Tx) error {
		return ledger.ReserveLines(ctx, tx, []Line{
			{ItemID: items[0].ID, Quantity: 2},
			{ItemID: items[1].ID, Quantity: 2},
		})
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	storetest.RequireStock(t, store, items[0].ID, 4)
	storetest.RequireStock(t, store, items[1].ID, 1)
}

func TestLedger_ConcurrentReservesNeverOversell(t *testing.T) {
	ledger, store, items := setup(t, 10)
	ctx := context.Background()

	const workers = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Reserve(ctx, items[0].ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, fail)
	storetest.RequireStock(t, store, items[0].ID, 0)
}

func TestSortedLinesDoesNotMutateInput(t *testing.T) {
	a, b := uuid.MustParse("ffffffff-0000-0000-0000-000000000000"), uuid.MustParse("00000000-0000-0000-0000-000000000001")
	lines := []Line{{ItemID: a, Quantity: 1}, {ItemID: b, Quantity: 2}}

	sorted := sortedLines(lines)

	assert.Equal(t, []Line{{ItemID: b, Quantity: 2}, {ItemID: a, Quantity: 1}}, sorted)
	assert.Equal(t, a, lines[0].ItemID)
}

func TestLinesOf(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, []Line{{ItemID: id, Quantity: 3}}, LinesOf([]domain.LineItem{{ItemID: id, Quantity: 3}}))
}
