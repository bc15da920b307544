package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/matheus3301/collab/internal/store"
)

// KafkaPublisher writes outbox entries to a Kafka topic, keyed by chat ID so
// that the events of one chat stay ordered within a partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e store.OutboxEntry) error {
	err := p.w.WriteMessages(ctx, Message(e))
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", e.EventID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Message converts an outbox entry to its Kafka record.
func Message(e store.OutboxEntry) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.ChatID),
		Value: e.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(e.EventID)},
			{Key: "kind", Value: []byte(e.Kind)},
		},
		Time: time.Now(),
	}
}
