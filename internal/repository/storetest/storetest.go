// Package storetest holds the behavioural suite every repository.Store must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/repository"
)

// Suite is embedded by adapter test suites, which set Store in SetupTest.
type Suite struct {
	suite.Suite

	Store repository.Store
}

// CmpOpts compares decimals by value and timestamps to the millisecond.
var CmpOpts = []cmp.Option{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.EquateApproxTime(time.Millisecond),
	cmpopts.EquateEmpty(),
}

// Now is a timestamp every adapter can store without loss.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// FakeItem returns a valid random item owned by sellerID.
func FakeItem(sellerID uuid.UUID, stock int) *domain.Item {
	now := Now()
	return &domain.Item{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Title:        gofakeit.ProductName(),
		Price:        decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2),
		Stock:        stock,
		Category:     gofakeit.ProductCategory(),
		DeliveryDays: gofakeit.IntRange(1, 10),
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// FakeOrder builds a pending order over items, one unit each.
func FakeOrder(buyerID uuid.UUID, items ...*domain.Item) *domain.Order {
	lines := lo.Map(items, func(it *domain.Item, _ int) domain.LineItem {
		return domain.LineItem{ItemID: it.ID, Quantity: 1, UnitPrice: it.Price}
	})
	o, err := domain.NewOrder(buyerID, items[0].SellerID, lines, decimal.RequireFromString("3.50"), Now())
	if err != nil {
		panic(err)
	}
	return o
}

func (s *Suite) mustInsertItem(item *domain.Item) {
	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.InsertItem(s.ctx(), item)
	}))
}

func (s *Suite) mustInsertOrder(o *domain.Order) {
	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.InsertOrder(s.ctx(), o)
	}))
}

func (s *Suite) ctx() context.Context {
	return s.T().Context()
}

func (s *Suite) TestItemRoundTrip() {
	item := FakeItem(uuid.New(), 7)
	s.mustInsertItem(item)

	got, err := s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(item, got, CmpOpts...))

	_, err = s.Store.GetItem(s.ctx(), uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestGetItemsSkipsMissing() {
	a, b := FakeItem(uuid.New(), 1), FakeItem(uuid.New(), 2)
	s.mustInsertItem(a)
	s.mustInsertItem(b)

	got, err := s.Store.GetItems(s.ctx(), []uuid.UUID{a.ID, uuid.New(), b.ID})
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Equal(1, got[a.ID].Stock)
	s.Equal(2, got[b.ID].Stock)

	got, err = s.Store.GetItems(s.ctx(), nil)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *Suite) TestReserveAndRestoreStock() {
	item := FakeItem(uuid.New(), 5)
	s.mustInsertItem(item)

	err := s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.ReserveStock(s.ctx(), item.ID, 3, Now())
	})
	s.Require().NoError(err)

	got, err := s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Equal(2, got.Stock)
	s.Greater(got.Version, item.Version)

	err = s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.ReserveStock(s.ctx(), item.ID, 3, Now())
	})
	var stockErr *domain.InsufficientStockError
	s.Require().True(errors.As(err, &stockErr), "got %v", err)
	s.Equal(item.ID, stockErr.ItemID)
	s.Equal(3, stockErr.Requested)
	s.Equal(2, stockErr.Available)

	err = s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.RestoreStock(s.ctx(), item.ID, 3, Now())
	})
	s.Require().NoError(err)

	got, err = s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Equal(5, got.Stock)

	err = s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.ReserveStock(s.ctx(), uuid.New(), 1, Now())
	})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestFailedUnitOfWorkRollsBack() {
	item := FakeItem(uuid.New(), 4)
	s.mustInsertItem(item)
	boom := errors.New("boom")

	err := s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		if err := tx.ReserveStock(s.ctx(), item.ID, 4, Now()); err != nil {
			return err
		}
		if err := tx.InsertOrder(s.ctx(), FakeOrder(uuid.New(), item)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Equal(4, got.Stock)

	count := 0
	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		var err error
		count, err = tx.CountOpenOrdersForItem(s.ctx(), item.ID)
		return err
	}))
	s.Zero(count)
}

func (s *Suite) TestConcurrentReserveNeverOversells() {
	const stock, buyers = 5, 20
	item := FakeItem(uuid.New(), stock)
	s.mustInsertItem(item)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Store.WithTx(context.Background(), func(tx repository.Tx) error {
				return tx.ReserveStock(context.Background(), item.ID, 1, Now())
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(stock), succeeded.Load())
	s.Equal(int32(buyers-stock), rejected.Load())

	got, err := s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Equal(0, got.Stock)
}

func (s *Suite) TestApplyRating() {
	item := FakeItem(uuid.New(), 1)
	item.AvgRating = 4.0
	item.CommentsCount = 2
	s.mustInsertItem(item)

	var updated *domain.Item
	err := s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		var err error
		updated, err = tx.ApplyRating(s.ctx(), item.ID, 5, Now())
		return err
	})
	s.Require().NoError(err)
	s.InDelta(13.0/3.0, updated.AvgRating, 1e-9)
	s.Equal(3, updated.CommentsCount)

	got, err := s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.InDelta(13.0/3.0, got.AvgRating, 1e-9)
	s.Equal(3, got.CommentsCount)
}

func (s *Suite) TestUpdateItemPriceAndDelete() {
	item := FakeItem(uuid.New(), 1)
	s.mustInsertItem(item)

	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpdateItemPrice(s.ctx(), item.ID, decimal.RequireFromString("99.95"), Now())
	}))
	got, err := s.Store.GetItem(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Equal("99.95", got.Price.StringFixed(2))

	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.DeleteItem(s.ctx(), item.ID)
	}))
	_, err = s.Store.GetItem(s.ctx(), item.ID)
	s.ErrorIs(err, domain.ErrNotFound)

	err = s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.DeleteItem(s.ctx(), item.ID)
	})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestOrderRoundTripAndListing() {
	seller, buyer := uuid.New(), uuid.New()
	a, b := FakeItem(seller, 3), FakeItem(seller, 3)
	s.mustInsertItem(a)
	s.mustInsertItem(b)

	older := FakeOrder(buyer, a, b)
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	older.UpdatedAt = older.CreatedAt
	newer := FakeOrder(buyer, a)
	s.mustInsertOrder(older)
	s.mustInsertOrder(newer)

	got, err := s.Store.GetOrder(s.ctx(), older.ID)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(older, got, append(CmpOpts, cmpopts.SortSlices(func(x, y domain.LineItem) bool {
		return x.ItemID.String() < y.ItemID.String()
	}))...))

	byBuyer, err := s.Store.ListOrdersByBuyer(s.ctx(), buyer)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{newer.ID, older.ID}, lo.Map(byBuyer, func(o *domain.Order, _ int) uuid.UUID { return o.ID }))

	bySeller, err := s.Store.ListOrdersBySeller(s.ctx(), seller)
	s.Require().NoError(err)
	s.Len(bySeller, 2)

	none, err := s.Store.ListOrdersByBuyer(s.ctx(), uuid.New())
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.Store.GetOrder(s.ctx(), uuid.New())
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestOrderTotalSurvivesRoundTrip() {
	seller := uuid.New()
	_, err := domain.NewItem(seller, "half cent", decimal.RequireFromString("1.005"), 1, "", 0)
	s.Require().ErrorIs(err, domain.ErrInvalidPrice)

	a, b := FakeItem(seller, 10), FakeItem(seller, 10)
	a.Price, b.Price = decimal.RequireFromString("1.01"), decimal.RequireFromString("0.99")
	s.mustInsertItem(a)
	s.mustInsertItem(b)

	order, err := domain.NewOrder(uuid.New(), seller, []domain.LineItem{
		{ItemID: a.ID, Quantity: 3, UnitPrice: a.Price},
		{ItemID: b.ID, Quantity: 7, UnitPrice: b.Price},
	}, decimal.RequireFromString("0.05"), Now())
	s.Require().NoError(err)
	s.mustInsertOrder(order)

	got, err := s.Store.GetOrder(s.ctx(), order.ID)
	s.Require().NoError(err)
	s.Equal("10.01", got.TotalPrice.StringFixed(2))
	s.True(got.ComputeTotal().Equal(got.TotalPrice), "stored total %s, recomputed %s", got.TotalPrice, got.ComputeTotal())
}

func (s *Suite) TestUpdateOrderStatusIsCompareAndSet() {
	item := FakeItem(uuid.New(), 1)
	s.mustInsertItem(item)
	o := FakeOrder(uuid.New(), item)
	s.mustInsertOrder(o)

	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpdateOrderStatus(s.ctx(), o.ID, domain.OrderStatusPending, domain.OrderStatusAccepted, Now())
	}))

	err := s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpdateOrderStatus(s.ctx(), o.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, Now())
	})
	s.ErrorIs(err, domain.ErrConflict)

	got, err := s.Store.GetOrder(s.ctx(), o.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusAccepted, got.Status)

	err = s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpdateOrderStatus(s.ctx(), uuid.New(), domain.OrderStatusPending, domain.OrderStatusAccepted, Now())
	})
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestCountOpenOrdersForItem() {
	item := FakeItem(uuid.New(), 5)
	s.mustInsertItem(item)
	open := FakeOrder(uuid.New(), item)
	closed := FakeOrder(uuid.New(), item)
	s.mustInsertOrder(open)
	s.mustInsertOrder(closed)

	count := func() int {
		var n int
		s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
			var err error
			n, err = tx.CountOpenOrdersForItem(s.ctx(), item.ID)
			return err
		}))
		return n
	}

	s.Equal(2, count())

	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpdateOrderStatus(s.ctx(), closed.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, Now())
	}))
	s.Equal(1, count())
}

func (s *Suite) TestRefundCounter() {
	user := uuid.New()

	acc, err := s.Store.GetAccount(s.ctx(), user)
	s.Require().NoError(err)
	s.Equal(0, acc.RefundCount)

	for i := 0; i < 2; i++ {
		s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
			return tx.IncrementRefundCount(s.ctx(), user, Now())
		}))
	}

	acc, err = s.Store.GetAccount(s.ctx(), user)
	s.Require().NoError(err)
	s.Equal(user, acc.UserID)
	s.Equal(2, acc.RefundCount)
}

func (s *Suite) TestComments() {
	item := FakeItem(uuid.New(), 1)
	s.mustInsertItem(item)

	rating := 4
	orderID := uuid.New()
	first, err := domain.NewComment(item.ID, uuid.New(), gofakeit.Sentence(6), &rating, &orderID, Now().Add(-time.Minute))
	s.Require().NoError(err)
	second, err := domain.NewComment(item.ID, uuid.New(), gofakeit.Sentence(4), nil, nil, Now())
	s.Require().NoError(err)

	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		if err := tx.InsertComment(s.ctx(), first); err != nil {
			return err
		}
		return tx.InsertComment(s.ctx(), second)
	}))

	got, err := s.Store.ListComments(s.ctx(), item.ID)
	s.Require().NoError(err)
	s.Empty(cmp.Diff([]*domain.Comment{first, second}, got, CmpOpts...))
}

func (s *Suite) TestDeliveryProfileUpsert() {
	seller := uuid.New()

	_, err := s.Store.GetDeliveryProfile(s.ctx(), seller)
	s.ErrorIs(err, domain.ErrNotFound)

	profile := &domain.SellerDeliveryProfile{
		SellerID:           seller,
		Location:           &domain.GeoPoint{Longitude: gofakeit.Longitude(), Latitude: gofakeit.Latitude()},
		ServiceableCities:  []string{gofakeit.City(), gofakeit.City()},
		MaxDeliveryRangeKm: 12.5,
		BaseDeliveryFee:    decimal.RequireFromString("2.00"),
		PricePerKm:         decimal.RequireFromString("0.35"),
		UpdatedAt:          Now(),
	}
	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpsertDeliveryProfile(s.ctx(), profile)
	}))

	got, err := s.Store.GetDeliveryProfile(s.ctx(), seller)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(profile, got, CmpOpts...))

	profile.Location = nil
	profile.ServiceableCities = nil
	profile.MaxDeliveryRangeKm = 0
	s.Require().NoError(s.Store.WithTx(s.ctx(), func(tx repository.Tx) error {
		return tx.UpsertDeliveryProfile(s.ctx(), profile)
	}))

	got, err = s.Store.GetDeliveryProfile(s.ctx(), seller)
	s.Require().NoError(err)
	s.Nil(got.Location)
	s.Empty(got.ServiceableCities)
}

// RequireStock is a helper for adapter-specific tests.
func RequireStock(t require.TestingT, store repository.Reader, itemID uuid.UUID, want int) {
	item, err := store.GetItem(context.Background(), itemID)
	require.NoError(t, err)
	require.Equal(t, want, item.Stock)
}
