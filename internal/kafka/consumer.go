package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"marketplace-service/internal/config"
	"marketplace-service/internal/events"
)

// Processor handles one decoded-by-header message.
type Processor interface {
	ProcessEvent(ctx context.Context, eventType string, eventData []byte) error
}

// Consumer represents a Kafka consumer
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       *consumerGroupHandler
	logger        *zap.Logger
	topics        []string
	groupID       string
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.Config, processor Processor, logger *zap.Logger) (*Consumer, error) {
	logger.Info("Creating Kafka consumer",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	consumerGroup, err := sarama.NewConsumerGroup(cfg.KafkaBrokers, cfg.KafkaGroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		handler:       newConsumerGroupHandler(processor, cfg.KafkaRetries, logger),
		logger:        logger,
		topics:        cfg.KafkaTopics(),
		groupID:       cfg.KafkaGroupID,
	}, nil
}

// Start consumes until ctx is cancelled or the group is closed.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.consumerGroup.Errors() {
			c.logger.Error("Consumer error", zap.Error(err))
		}
	}()

	c.logger.Info("Kafka consumer started",
		zap.Strings("topics", c.topics),
		zap.String("group_id", c.groupID),
	)

	for {
		// Consume returns on every rebalance; loop to rejoin the group
		if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consumer group: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

// consumerGroupHandler handles Kafka consumer group messages
type consumerGroupHandler struct {
	processor  Processor
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

func newConsumerGroupHandler(processor Processor, maxRetries int, logger *zap.Logger) *consumerGroupHandler {
	return &consumerGroupHandler{
		processor:  processor,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: 200 * time.Millisecond,
	}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages()
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			h.handleMessage(session.Context(), message)
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handleMessage never fails the claim: a message that cannot be processed is
// logged and skipped so the partition keeps moving.
func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	eventType := extractEventType(message.Headers)
	if eventType == "" {
		h.logger.Warn("Message without event type, skipping",
			zap.String("topic", message.Topic),
			zap.Int32("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return
	}

	if err := h.processWithRetry(ctx, eventType, message.Value); err != nil {
		h.logger.Error("Failed to process event after retries",
			zap.String("event_type", eventType),
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Error(err),
		)
	}
}

// processWithRetry processes an event with retry logic
func (h *consumerGroupHandler) processWithRetry(ctx context.Context, eventType string, eventData []byte) error {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			delay := h.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := h.processor.ProcessEvent(ctx, eventType, eventData)
		if err == nil {
			if attempt > 0 {
				h.logger.Info("Event processed successfully after retry",
					zap.String("event_type", eventType),
					zap.Int("attempts", attempt+1),
				)
			}
			return nil
		}
		if errors.Is(err, events.ErrUnknownEventType) {
			return err
		}
		lastErr = err
		h.logger.Warn("Event processing failed",
			zap.String("event_type", eventType),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return fmt.Errorf("failed after %d attempts: %w", h.maxRetries+1, lastErr)
}

// extractEventType extracts event type from Kafka message headers
func extractEventType(headers []*sarama.RecordHeader) string {
	for _, header := range headers {
		if string(header.Key) == events.HeaderEventType {
			return string(header.Value)
		}
	}
	return ""
}
