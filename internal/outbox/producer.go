package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrUnroutedTopic is returned for writes to a topic no activity event routes to.
var ErrUnroutedTopic = errors.New("topic has no activity event route")

// KafkaProducer holds one writer per routed activity topic. Records are
// hashed on their key, so every event for one assignee stays on one partition.
type KafkaProducer struct {
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates writers for every topic in the route table.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	writers := make(map[string]*kafka.Writer)
	for _, topic := range Topics() {
		writers[topic] = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	return &KafkaProducer{writers: writers}
}

// WriteMessages writes msgs synchronously to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	writer, ok := p.writers[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnroutedTopic, topic)
	}
	return writer.WriteMessages(ctx, msgs...)
}

// Close flushes and releases all writers.
func (p *KafkaProducer) Close() error {
	var errs error
	for _, writer := range p.writers {
		errs = errors.Join(errs, writer.Close())
	}
	return errs
}
