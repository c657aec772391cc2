package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"schoolpay/internal/platform/config"
)

// Message is one consumed inbox record, decoupled from kgo so handlers stay
// testable without a broker.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// HandlerFunc processes one message. Returning an error logs and skips the
// record; webhook reconciliation is idempotent, so redelivery is always safe
// and poison payloads must not wedge the partition.
type HandlerFunc func(ctx context.Context, msg Message) error

// Consumer reads the webhook inbox topic within a consumer group.
type Consumer struct {
	client  *kgo.Client
	handler HandlerFunc
	logger  *slog.Logger
}

// NewConsumer joins the configured consumer group on the inbox topic.
// Returns nil if no brokers are configured.
func NewConsumer(cfg config.KafkaConfig, handler HandlerFunc, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.WebhookTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}

	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			msg := Message{Topic: rec.Topic, Key: rec.Key, Value: rec.Value}
			if err := c.handler(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "webhook message handling failed",
					"topic", rec.Topic,
					"key", string(rec.Key),
					"error", err,
				)
			}
		})
	}
}
