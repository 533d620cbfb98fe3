package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace-service/internal/config"
)

const (
	HeaderEventType = "event-type"
	HeaderEventID   = "event-id"
	HeaderTimestamp = "timestamp"
)

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer   sarama.SyncProducer
	logger     *zap.Logger
	topics     map[Stream]string
	maxRetries int
	baseDelay  time.Duration
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(cfg *config.Config, logger *zap.Logger) (*KafkaEventPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Retry.Max = cfg.KafkaRetries

	// Parse acks
	switch cfg.KafkaAcks {
	case "0":
		saramaConfig.Producer.RequiredAcks = sarama.NoResponse
	case "1":
		saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	default:
		// idempotence is only valid with acks=all
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
		saramaConfig.Producer.Idempotent = true
		saramaConfig.Net.MaxOpenRequests = 1
	}

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newKafkaEventPublisher(producer, cfg, logger), nil
}

func newKafkaEventPublisher(producer sarama.SyncProducer, cfg *config.Config, logger *zap.Logger) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		logger:   logger,
		topics: map[Stream]string{
			StreamOrders:  cfg.KafkaTopicOrders,
			StreamCatalog: cfg.KafkaTopicCatalog,
		},
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
	}
}

// Publish publishes an event to Kafka with retries and exponential backoff
func (p *KafkaEventPublisher) Publish(ctx context.Context, event Event) error {
	message, err := p.buildMessage(event)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		partition, offset, err := p.producer.SendMessage(message)
		if err == nil {
			p.logger.Info("Event published to Kafka",
				zap.String("topic", message.Topic),
				zap.Int32("partition", partition),
				zap.Int64("offset", offset),
				zap.String("event_type", event.EventType()),
				zap.Int("attempt", attempt+1),
			)
			return nil
		}

		lastErr = err
		p.logger.Warn("Failed to publish event to Kafka, retrying",
			zap.String("topic", message.Topic),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", p.maxRetries),
		)

		// Exponential backoff before retry
		if attempt < p.maxRetries-1 {
			delay := p.baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("failed to publish event to Kafka after %d attempts: %w", p.maxRetries, lastErr)
}

func (p *KafkaEventPublisher) buildMessage(event Event) (*sarama.ProducerMessage, error) {
	topic, ok := p.topics[event.Stream()]
	if !ok || topic == "" {
		return nil, fmt.Errorf("no topic configured for event type %s", event.EventType())
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventType), Value: []byte(event.EventType())},
			{Key: []byte(HeaderEventID), Value: []byte(uuid.New().String())},
			{Key: []byte(HeaderTimestamp), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	if key := event.PartitionKey(); key != "" {
		message.Key = sarama.StringEncoder(key)
	}
	return message, nil
}

// Close closes the Kafka producer
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
