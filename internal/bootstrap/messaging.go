package bootstrap

import (
	"room-broker/config"
	"room-broker/internal/initializer"
)

type Messaging = initializer.EventPublisher

func SetupMessaging(config config.Config) Messaging {
	return initializer.InitMessaging(config)
}
