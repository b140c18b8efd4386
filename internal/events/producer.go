// Package events delivers committed workflow events to downstream consumers.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer sends one keyed message to a topic.
type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

// KafkaProducer writes messages with a kafka-go writer.
type KafkaProducer struct {
	w *kafka.Writer
}

// NewKafkaProducer returns a producer for brokers. Messages with the same key
// land on the same partition.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (p *KafkaProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	if err := p.w.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: value}); err != nil {
		return fmt.Errorf("kafka write %s: %w", topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.w.Close()
}

// LogProducer writes messages to the log instead of a broker.
type LogProducer struct {
	log *zap.Logger
}

// NewLogProducer returns a producer logging through l.
func NewLogProducer(l *zap.Logger) *LogProducer {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogProducer{log: l}
}

func (p *LogProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.log.Info("event", zap.String("topic", topic), zap.ByteString("key", key), zap.ByteString("value", value))
	return nil
}

func (p *LogProducer) Close() error { return nil }
