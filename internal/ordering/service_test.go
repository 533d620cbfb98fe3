package ordering

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"marketplace-service/internal/commands"
	"marketplace-service/internal/delivery"
	"marketplace-service/internal/domain"
	"marketplace-service/internal/events"
	"marketplace-service/internal/inventory"
	"marketplace-service/internal/repository"
	"marketplace-service/internal/repository/memory"
	"marketplace-service/internal/repository/storetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	svc       *Service
	store     *memory.Store
	publisher *events.InMemoryEventPublisher
	seller    uuid.UUID
	buyer     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	publisher := events.NewInMemoryEventPublisher(logger)
	svc := NewService(store, inventory.NewLedger(store, logger), delivery.NewService(store, logger), publisher, logger)
	return &fixture{svc: svc, store: store, publisher: publisher, seller: uuid.New(), buyer: uuid.New()}
}

func (f *fixture) item(t *testing.T, price string, stock int) *domain.Item {
	t.Helper()
	item := storetest.FakeItem(f.seller, stock)
	item.Price = decimal.RequireFromString(price)
	require.NoError(t, f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertItem(context.Background(), item)
	}))
	return item
}

func (f *fixture) order(t *testing.T, lines ...commands.LineRequest) *domain.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{BuyerID: f.buyer, Items: lines})
	require.NoError(t, err)
	return o
}

func (f *fixture) transition(orderID, actor uuid.UUID, role domain.Role, target domain.OrderStatus) (*domain.Order, error) {
	return f.svc.TransitionOrder(context.Background(), commands.TransitionOrderCommand{
		OrderID: orderID,
		ActorID: actor,
		Role:    role,
		Target:  target,
	})
}

func fee(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestCreateOrder_ReservesStockAndComputesTotal(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "10.00", 5)

	o, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{
		BuyerID:     f.buyer,
		Items:       []commands.LineRequest{{ItemID: item.ID, Quantity: 3}},
		DeliveryFee: fee("4.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, f.seller, o.SellerID)
	assert.True(t, decimal.RequireFromString("34.50").Equal(o.TotalPrice), o.TotalPrice.String())
	storetest.RequireStock(t, f.store, item.ID, 2)

	stored, err := f.store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(o, stored, storetest.CmpOpts...))

	published := f.publisher.Events()
	require.Len(t, published, 1)
	created, ok := published[0].(events.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, o.ID, created.OrderID)
}

func TestCreateOrder_MergesRepeatedItems(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "2.00", 10)

	o := f.order(t,
		commands.LineRequest{ItemID: item.ID, Quantity: 1},
		commands.LineRequest{ItemID: item.ID, Quantity: 2},
	)

	require.Len(t, o.Items, 1)
	assert.Equal(t, 3, o.Items[0].Quantity)
	storetest.RequireStock(t, f.store, item.ID, 7)
}

func TestCreateOrder_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	plenty := f.item(t, "1.00", 10)
	scarce := f.item(t, "1.00", 1)

	_, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{
		BuyerID: f.buyer,
		Items: []commands.LineRequest{
			{ItemID: plenty.ID, Quantity: 4},
			{ItemID: scarce.ID, Quantity: 2},
		},
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce.ID, stockErr.ItemID)
	storetest.RequireStock(t, f.store, plenty.ID, 10)
	storetest.RequireStock(t, f.store, scarce.ID, 1)

	orders, err := f.svc.ListOrders(context.Background(), f.buyer, domain.RoleBuyer)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.publisher.Events())
}

func TestCreateOrder_RejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "1.00", 10)
	other := storetest.FakeItem(uuid.New(), 10)
	require.NoError(t, f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertItem(context.Background(), other)
	}))

	tests := []struct {
		name string
		cmd  commands.CreateOrderCommand
		want error
	}{
		{
			name: "no lines",
			cmd:  commands.CreateOrderCommand{BuyerID: f.buyer},
			want: domain.ErrEmptyOrder,
		},
		{
			name: "zero quantity",
			cmd:  commands.CreateOrderCommand{BuyerID: f.buyer, Items: []commands.LineRequest{{ItemID: item.ID}}},
			want: domain.ErrInvalidQuantity,
		},
		{
			name: "negative fee",
			cmd: commands.CreateOrderCommand{
				BuyerID:     f.buyer,
				Items:       []commands.LineRequest{{ItemID: item.ID, Quantity: 1}},
				DeliveryFee: fee("-1"),
			},
			want: domain.ErrInvalidFee,
		},
		{
			name: "sub-cent fee",
			cmd: commands.CreateOrderCommand{
				BuyerID:     f.buyer,
				Items:       []commands.LineRequest{{ItemID: item.ID, Quantity: 1}},
				DeliveryFee: fee("0.005"),
			},
			want: domain.ErrInvalidFee,
		},
		{
			name: "unknown item",
			cmd:  commands.CreateOrderCommand{BuyerID: f.buyer, Items: []commands.LineRequest{{ItemID: uuid.New(), Quantity: 1}}},
			want: domain.ErrNotFound,
		},
		{
			name: "two sellers",
			cmd: commands.CreateOrderCommand{BuyerID: f.buyer, Items: []commands.LineRequest{
				{ItemID: item.ID, Quantity: 1},
				{ItemID: other.ID, Quantity: 1},
			}},
			want: domain.ErrMixedSellers,
		},
		{
			name: "anonymous buyer",
			cmd:  commands.CreateOrderCommand{Items: []commands.LineRequest{{ItemID: item.ID, Quantity: 1}}},
			want: domain.ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	storetest.RequireStock(t, f.store, item.ID, 10)
}

func TestCreateOrder_SnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "8.00", 5)
	o := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 2})

	require.NoError(t, f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.UpdateItemPrice(context.Background(), item.ID, decimal.RequireFromString("99.00"), storetest.Now())
	}))

	stored, err := f.svc.GetOrder(context.Background(), o.ID, f.buyer)
	require.NoError(t, err)

	want := []domain.LineItem{{ItemID: item.ID, Quantity: 2, UnitPrice: decimal.RequireFromString("8.00")}}
	assert.Empty(t, cmp.Diff(want, stored.Items, storetest.CmpOpts...))
	assert.True(t, decimal.RequireFromString("16.00").Equal(stored.TotalPrice))
}

func TestCreateOrder_QuotesDeliveryForDestination(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "10.00", 5)

	profile := &domain.SellerDeliveryProfile{
		SellerID:           f.seller,
		Location:           &domain.GeoPoint{Longitude: 2.3522, Latitude: 48.8566},
		ServiceableCities:  []string{"Paris"},
		MaxDeliveryRangeKm: 50,
		BaseDeliveryFee:    decimal.RequireFromString("2.00"),
		PricePerKm:         decimal.RequireFromString("0.50"),
	}
	require.NoError(t, f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.UpsertDeliveryProfile(context.Background(), profile)
	}))

	dest := domain.Destination{City: "paris", Point: &domain.GeoPoint{Longitude: 2.2945, Latitude: 48.8584}}
	expected := delivery.Evaluate(profile, dest)
	require.True(t, expected.Deliverable)

	o, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{
		BuyerID:     f.buyer,
		Items:       []commands.LineRequest{{ItemID: item.ID, Quantity: 1}},
		Destination: &dest,
	})
	require.NoError(t, err)
	assert.True(t, expected.Fee.Equal(o.DeliveryFee), o.DeliveryFee.String())
	assert.True(t, o.DeliveryFee.GreaterThan(profile.BaseDeliveryFee))

	t.Run("explicit fee wins", func(t *testing.T) {
		o, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{
			BuyerID:     f.buyer,
			Items:       []commands.LineRequest{{ItemID: item.ID, Quantity: 1}},
			Destination: &dest,
			DeliveryFee: fee("0"),
		})
		require.NoError(t, err)
		assert.True(t, o.DeliveryFee.IsZero())
	})

	t.Run("not deliverable", func(t *testing.T) {
		_, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{
			BuyerID:     f.buyer,
			Items:       []commands.LineRequest{{ItemID: item.ID, Quantity: 1}},
			Destination: &domain.Destination{City: "Lyon"},
		})
		assert.ErrorIs(t, err, domain.ErrNotDeliverable)
		storetest.RequireStock(t, f.store, item.ID, 3)
	})
}

func TestCreateOrder_LastUnitGoesToOneBuyer(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "5.00", 1)

	const buyers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateOrder(context.Background(), commands.CreateOrderCommand{
				BuyerID: uuid.New(),
				Items:   []commands.LineRequest{{ItemID: item.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrInsufficientStock) {
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, buyers-1, fail)
	storetest.RequireStock(t, f.store, item.ID, 0)
}

func TestTransitionOrder_CancelRestoresStockOnce(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "3.00", 5)
	o := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 3})
	storetest.RequireStock(t, f.store, item.ID, 2)

	cancelled, err := f.transition(o.ID, f.buyer, domain.RoleBuyer, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	storetest.RequireStock(t, f.store, item.ID, 5)

	_, err = f.transition(o.ID, f.buyer, domain.RoleBuyer, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	storetest.RequireStock(t, f.store, item.ID, 5)

	for _, user := range []uuid.UUID{f.buyer, f.seller} {
		acc, err := f.store.GetAccount(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, 1, acc.RefundCount)
	}

	var types []string
	for _, e := range f.publisher.Events() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{events.TypeOrderCreated, events.TypeOrderStatusChanged, events.TypeOrderCancelled}, types)
}

func TestTransitionOrder_SellerWalksForward(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "3.00", 5)
	o := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 1})

	for _, next := range []domain.OrderStatus{domain.OrderStatusAccepted, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		updated, err := f.transition(o.ID, f.seller, domain.RoleSeller, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	_, err := f.transition(o.ID, f.seller, domain.RoleSeller, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	storetest.RequireStock(t, f.store, item.ID, 4)
}

func TestTransitionOrder_Authorization(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "3.00", 5)
	o := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 1})

	_, err := f.transition(o.ID, uuid.New(), domain.RoleSeller, domain.OrderStatusAccepted)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = f.transition(o.ID, f.buyer, domain.RoleBuyer, domain.OrderStatusAccepted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.transition(o.ID, f.seller, domain.RoleSeller, "lost")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.transition(uuid.New(), f.seller, domain.RoleSeller, domain.OrderStatusAccepted)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.transition(o.ID, f.seller, domain.RoleSeller, domain.OrderStatusAccepted)
	require.NoError(t, err)
	_, err = f.transition(o.ID, f.buyer, domain.RoleBuyer, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionOrder_ConcurrentTransitionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "3.00", 5)
	o := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 2})
	for _, next := range []domain.OrderStatus{domain.OrderStatusAccepted, domain.OrderStatusShipped} {
		_, err := f.transition(o.ID, f.seller, domain.RoleSeller, next)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.transition(o.ID, f.buyer, domain.RoleBuyer, domain.OrderStatusDelivered)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.transition(o.ID, f.seller, domain.RoleSeller, domain.OrderStatusCancelled)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrConflict), err)
	}
	assert.Equal(t, 1, succeeded)

	final, err := f.svc.GetOrder(context.Background(), o.ID, f.seller)
	require.NoError(t, err)
	if final.Status == domain.OrderStatusCancelled {
		storetest.RequireStock(t, f.store, item.ID, 5)
	} else {
		assert.Equal(t, domain.OrderStatusDelivered, final.Status)
		storetest.RequireStock(t, f.store, item.ID, 3)
	}
}

func TestGetAndListOrders(t *testing.T) {
	f := newFixture(t)
	item := f.item(t, "3.00", 5)
	first := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 1})
	second := f.order(t, commands.LineRequest{ItemID: item.ID, Quantity: 1})

	_, err := f.svc.GetOrder(context.Background(), first.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	got, err := f.svc.GetOrder(context.Background(), first.ID, f.seller)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	bought, err := f.svc.ListOrders(context.Background(), f.buyer, domain.RoleBuyer)
	require.NoError(t, err)
	require.Len(t, bought, 2)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{bought[0].ID, bought[1].ID})

	sold, err := f.svc.ListOrders(context.Background(), f.seller, domain.RoleSeller)
	require.NoError(t, err)
	assert.Len(t, sold, 2)

	none, err := f.svc.ListOrders(context.Background(), f.seller, domain.RoleBuyer)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMergeLines(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	merged, err := mergeLines([]commands.LineRequest{
		{ItemID: b, Quantity: 1},
		{ItemID: a, Quantity: 2},
		{ItemID: b, Quantity: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []commands.LineRequest{{ItemID: b, Quantity: 5}, {ItemID: a, Quantity: 2}}, merged)

	_, err = mergeLines([]commands.LineRequest{{ItemID: uuid.Nil, Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidItem)
}
