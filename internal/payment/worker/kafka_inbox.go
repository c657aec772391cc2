package worker

import (
	"context"

	"schoolpay/internal/payment"
	"schoolpay/internal/platform/kafka"
)

// KafkaInbox publishes webhook payloads to the inbox topic instead of the
// in-process channel. A consumer group drains the topic through
// Worker.HandleMessage, so multiple instances can share the load.
type KafkaInbox struct {
	producer *kafka.Producer
}

func NewKafkaInbox(producer *kafka.Producer) *KafkaInbox {
	return &KafkaInbox{producer: producer}
}

// Enqueue publishes the raw payload. The partition key is the gateway event
// id when the payload parses, so redeliveries of one event stay ordered;
// unparseable payloads still ship and get classified by the consumer.
func (k *KafkaInbox) Enqueue(ctx context.Context, payload []byte) error {
	var key string
	if n, err := payment.Normalize(payload); err == nil {
		key = n.EventID
	}
	return k.producer.Publish(ctx, key, payload)
}
