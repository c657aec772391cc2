package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"schoolpay/internal/platform/config"
)

// Producer publishes raw webhook payloads to the inbox topic so the HTTP
// handler can acknowledge the gateway before reconciliation runs.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the configured brokers and ensures the inbox topic
// exists. Returns nil if no brokers are configured (in-process inbox is used).
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	if err := ensureTopic(context.Background(), client, cfg.WebhookTopic); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client, topic: cfg.WebhookTopic}, nil
}

// Publish writes one payload keyed by the gateway delivery id. Keys keep
// redeliveries of the same event on one partition so the consumer sees them
// in order.
func (p *Producer) Publish(ctx context.Context, key string, payload []byte) error {
	rec := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce webhook payload: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, ctr := range resp {
		if ctr.Err != nil && !errors.Is(ctr.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", ctr.Topic, ctr.Err)
		}
	}
	return nil
}
