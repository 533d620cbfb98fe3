package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace-service/internal/cache"
	"marketplace-service/internal/events"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) ProcessEvent(ctx context.Context, eventType string, eventData []byte) error {
	args := m.Called(ctx, eventType, eventData)
	return args.Error(0)
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func message(offset int64, eventType string, value []byte) *sarama.ConsumerMessage {
	msg := &sarama.ConsumerMessage{Topic: "marketplace.catalog", Offset: offset, Value: value}
	if eventType != "" {
		msg.Headers = []*sarama.RecordHeader{{Key: []byte(events.HeaderEventType), Value: []byte(eventType)}}
	}
	return msg
}

func runClaim(t *testing.T, h *consumerGroupHandler, msgs ...*sarama.ConsumerMessage) *fakeSession {
	t.Helper()
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, m := range msgs {
		claim.messages <- m
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))
	return session
}

func TestConsumeClaim_ProcessesAndMarksEveryMessage(t *testing.T) {
	processor := &mockProcessor{}
	processor.On("ProcessEvent", mock.Anything, events.TypeItemDeleted, []byte(`{"a":1}`)).Return(nil).Once()
	processor.On("ProcessEvent", mock.Anything, events.TypeStockRestocked, []byte(`{"b":2}`)).Return(nil).Once()

	h := newConsumerGroupHandler(processor, 2, zap.NewNop())
	session := runClaim(t, h,
		message(10, events.TypeItemDeleted, []byte(`{"a":1}`)),
		message(11, "", []byte(`{}`)),
		message(12, events.TypeStockRestocked, []byte(`{"b":2}`)),
	)

	assert.Equal(t, []int64{10, 11, 12}, session.marked)
	processor.AssertExpectations(t)
}

func TestConsumeClaim_RetriesTransientFailures(t *testing.T) {
	processor := &mockProcessor{}
	processor.On("ProcessEvent", mock.Anything, events.TypeItemDeleted, mock.Anything).Return(errors.New("redis down")).Twice()
	processor.On("ProcessEvent", mock.Anything, events.TypeItemDeleted, mock.Anything).Return(nil).Once()

	h := newConsumerGroupHandler(processor, 3, zap.NewNop())
	h.retryDelay = time.Millisecond

	session := runClaim(t, h, message(1, events.TypeItemDeleted, []byte(`{}`)))

	assert.Equal(t, []int64{1}, session.marked)
	processor.AssertNumberOfCalls(t, "ProcessEvent", 3)
}

func TestConsumeClaim_SkipsAfterMaxRetries(t *testing.T) {
	processor := &mockProcessor{}
	processor.On("ProcessEvent", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	h := newConsumerGroupHandler(processor, 1, zap.NewNop())
	h.retryDelay = time.Millisecond

	session := runClaim(t, h, message(5, events.TypeItemDeleted, []byte(`{}`)))

	assert.Equal(t, []int64{5}, session.marked)
	processor.AssertNumberOfCalls(t, "ProcessEvent", 2)
}

func TestConsumeClaim_DoesNotRetryUnknownTypes(t *testing.T) {
	invalidator := events.NewCacheInvalidator(cache.NewInMemoryCache(), zap.NewNop())
	h := newConsumerGroupHandler(invalidator, 5, zap.NewNop())
	h.retryDelay = time.Hour

	session := runClaim(t, h, message(7, "SomethingElse", []byte(`{}`)))
	assert.Equal(t, []int64{7}, session.marked)
}

func TestConsumeClaim_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewInMemoryCache()
	sellerID := uuid.New()
	require.NoError(t, c.Set(ctx, cache.ProfileKey(sellerID), []byte(`{}`), 0))

	body, err := json.Marshal(events.SellerProfileUpdatedEvent{SellerID: sellerID})
	require.NoError(t, err)

	h := newConsumerGroupHandler(events.NewCacheInvalidator(c, zap.NewNop()), 1, zap.NewNop())
	runClaim(t, h, message(1, events.TypeSellerProfileUpdated, body))

	_, err = c.Get(ctx, cache.ProfileKey(sellerID))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestConsumeClaim_StopsWhenSessionEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newConsumerGroupHandler(&mockProcessor{}, 0, zap.NewNop())
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	assert.NoError(t, h.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}
