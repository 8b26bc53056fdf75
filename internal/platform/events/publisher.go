package events

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"fieldpay/internal/platform/logging"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
}

// KafkaPublisher writes JSON events with kafka-go. Topic is set per message.
type KafkaPublisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, logger ...*zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		logger: logging.Named("events.kafka", logger...),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish event failed", zap.String("topic", topic), zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, string, any) error {
	return nil
}
