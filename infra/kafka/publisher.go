// Package kafka publishes room lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"room-broker/domain"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const eventTypeHeader = "event-type"

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

func NewDefaultConfig(brokers []string) KafkaConfig {
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}
	return KafkaConfig{
		Brokers:      brokers,
		Topic:        "room-events",
		ClientID:     "room-broker",
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per room event, keyed by room id so every
// event of a room lands on the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(config KafkaConfig) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Transport:              &kafka.Transport{ClientID: config.ClientID},
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				zap.L().Warn("failed to deliver room events",
					zap.String("topic", config.Topic),
					zap.Int("count", len(messages)),
					zap.Error(err))
			}
		},
	}

	zap.L().Info("Kafka publisher initialized",
		zap.Strings("brokers", config.Brokers),
		zap.String("topic", config.Topic))
	return &Publisher{writer: writer, topic: config.Topic}
}

// Publish never blocks the coordinator on the broker: delivery failures are
// only logged.
func (p *Publisher) Publish(ctx context.Context, event domain.RoomEvent) {
	msg, err := encodeEvent(event)
	if err != nil {
		zap.L().Error("failed to encode room event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		zap.L().Warn("failed to publish room event",
			zap.String("topic", p.topic),
			zap.String("type", event.Type),
			zap.String("room_id", event.RoomID),
			zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encodeEvent(event domain.RoomEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(event.RoomID),
		Value:   value,
		Time:    event.OccurredAt,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(event.Type)}},
	}, nil
}
