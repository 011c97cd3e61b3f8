package initializer

import (
	"context"

	"room-broker/config"
	"room-broker/domain"
	"room-broker/infra/kafka"

	"go.uber.org/zap"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.RoomEvent)
	Close() error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.RoomEvent) {}
func (noopPublisher) Close() error                              { return nil }

// InitMessaging returns the Kafka publisher, or one that drops every event
// when kafka is disabled.
func InitMessaging(appConfig config.Config) EventPublisher {
	if !appConfig.Kafka.Enabled {
		zap.L().Info("Kafka disabled; room events will not be published")
		return noopPublisher{}
	}

	kafkaConfig := kafka.NewDefaultConfig(appConfig.Kafka.Brokers)
	if appConfig.Kafka.Topic != "" {
		kafkaConfig.Topic = appConfig.Kafka.Topic
	}
	if appConfig.Kafka.ClientID != "" {
		kafkaConfig.ClientID = appConfig.Kafka.ClientID
	}
	return kafka.NewPublisher(kafkaConfig)
}
