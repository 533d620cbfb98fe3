// Package events defines the domain events and their publishers.
package events

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"marketplace-service/internal/config"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewEventPublisher returns a Kafka publisher when USE_KAFKA is set and the
// brokers are reachable, and the in-memory publisher otherwise.
func NewEventPublisher(cfg *config.Config, logger *zap.Logger) EventPublisher {
	if !cfg.UseKafka {
		logger.Info("Kafka disabled, using in-memory event publisher")
		return NewInMemoryEventPublisher(logger)
	}

	publisher, err := NewKafkaEventPublisher(cfg, logger)
	if err != nil {
		logger.Warn("Failed to create Kafka publisher, falling back to in-memory", zap.Error(err))
		return NewInMemoryEventPublisher(logger)
	}

	logger.Info("Kafka event publisher initialized",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("orders_topic", cfg.KafkaTopicOrders),
		zap.String("catalog_topic", cfg.KafkaTopicCatalog),
	)
	return publisher
}

// InMemoryEventPublisher keeps published events in process. Handlers can be
// attached to react to events synchronously.
type InMemoryEventPublisher struct {
	logger *zap.Logger

	mu       sync.Mutex
	events   []Event
	handlers []func(ctx context.Context, event Event)
}

func NewInMemoryEventPublisher(logger *zap.Logger) *InMemoryEventPublisher {
	return &InMemoryEventPublisher{logger: logger}
}

func (p *InMemoryEventPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	handlers := slices.Clone(p.handlers)
	p.mu.Unlock()

	p.logger.Debug("Event published (in-memory)",
		zap.String("event_type", event.EventType()),
		zap.String("key", event.PartitionKey()),
	)
	for _, h := range handlers {
		h(ctx, event)
	}
	return nil
}

// Subscribe registers h to run on every later Publish.
func (p *InMemoryEventPublisher) Subscribe(h func(ctx context.Context, event Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Events returns a snapshot of everything published so far.
func (p *InMemoryEventPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

func (p *InMemoryEventPublisher) Close() error { return nil }

// PublishAll publishes events in order. Failures are logged and skipped:
// the state they describe is already committed.
func PublishAll(ctx context.Context, publisher EventPublisher, logger *zap.Logger, events ...Event) {
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Warn("Failed to publish event",
				zap.String("event_type", event.EventType()),
				zap.String("key", event.PartitionKey()),
				zap.Error(err),
			)
		}
	}
}
