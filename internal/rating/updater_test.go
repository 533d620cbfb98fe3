package rating

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"marketplace-service/internal/commands"
	"marketplace-service/internal/domain"
	"marketplace-service/internal/events"
	"marketplace-service/internal/repository"
	"marketplace-service/internal/repository/memory"
	"marketplace-service/internal/repository/storetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T, avg float64, count int) (*Updater, *memory.Store, *events.InMemoryEventPublisher, *domain.Item) {
	t.Helper()
	store := memory.NewStore()
	item := storetest.FakeItem(uuid.New(), 10)
	item.AvgRating = avg
	item.CommentsCount = count
	require.NoError(t, store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertItem(context.Background(), item)
	}))
	publisher := events.NewInMemoryEventPublisher(zap.NewNop())
	return NewUpdater(store, publisher, zap.NewNop()), store, publisher, item
}

func ptr[T any](v T) *T { return &v }

func TestRecordRating_RunningAverage(t *testing.T) {
	updater, _, _, item := setup(t, 4.0, 2)

	updated, err := updater.RecordRating(context.Background(), item.ID, 5)
	require.NoError(t, err)

	assert.InDelta(t, 13.0/3.0, updated.AvgRating, 1e-9)
	assert.Equal(t, 3, updated.CommentsCount)
}

func TestRecordRating_RejectsOutOfRange(t *testing.T) {
	updater, store, _, item := setup(t, 0, 0)

	for _, r := range []int{0, 6, -1} {
		_, err := updater.RecordRating(context.Background(), item.ID, r)
		assert.ErrorIs(t, err, domain.ErrInvalidRating)
	}

	_, err := updater.RecordRating(context.Background(), uuid.New(), 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CommentsCount)
}

func TestRecordRating_ConcurrentRatingsAreNotLost(t *testing.T) {
	updater, store, _, item := setup(t, 0, 0)

	const reviewers = 20
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(rating int) {
			defer wg.Done()
			_, err := updater.RecordRating(context.Background(), item.ID, rating)
			assert.NoError(t, err)
		}(i%5 + 1)
	}
	wg.Wait()

	stored, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, reviewers, stored.CommentsCount)
	// four of each rating 1..5
	assert.InDelta(t, 3.0, stored.AvgRating, 1e-9)
}

func TestRecordReview_RatedReviewUpdatesAggregate(t *testing.T) {
	updater, store, publisher, item := setup(t, 4.0, 2)
	buyer := uuid.New()

	comment, err := updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID:  item.ID,
		BuyerID: buyer,
		Text:    "  great  ",
		Rating:  ptr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "great", comment.Text)

	comments, err := store.ListComments(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)

	published := publisher.Events()
	require.Len(t, published, 1)
	recorded, ok := published[0].(events.ReviewRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, 3, recorded.CommentsCount)
	assert.InDelta(t, 13.0/3.0, recorded.AvgRating, 1e-9)
}

func TestRecordReview_UnratedReviewKeepsAggregate(t *testing.T) {
	updater, store, _, item := setup(t, 4.0, 2)

	_, err := updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID:  item.ID,
		BuyerID: uuid.New(),
		Text:    "arrived quickly",
	})
	require.NoError(t, err)

	stored, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CommentsCount)
	assert.InDelta(t, 4.0, stored.AvgRating, 1e-9)
}

func TestRecordReview_OrderLinkage(t *testing.T) {
	updater, store, _, item := setup(t, 0, 0)
	buyer := uuid.New()
	order := storetest.FakeOrder(buyer, item)
	require.NoError(t, store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertOrder(context.Background(), order)
	}))

	_, err := updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID: item.ID, BuyerID: buyer, OrderID: &order.ID, Rating: ptr(4),
	})
	require.NoError(t, err)

	_, err = updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID: item.ID, BuyerID: uuid.New(), OrderID: &order.ID, Rating: ptr(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID: item.ID, BuyerID: buyer, OrderID: ptr(uuid.New()), Rating: ptr(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CommentsCount)
	assert.InDelta(t, 4.0, stored.AvgRating, 1e-9)

	comments, err := store.ListComments(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestRecordReview_Validation(t *testing.T) {
	updater, _, publisher, item := setup(t, 0, 0)

	_, err := updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID: item.ID, BuyerID: uuid.New(), Rating: ptr(9),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)

	_, err = updater.RecordReview(context.Background(), commands.RecordReviewCommand{
		ItemID: uuid.New(), BuyerID: uuid.New(), Rating: ptr(3),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, publisher.Events())
}
