package initializer

import (
	"context"
	"net"
	"testing"
	"time"

	"room-broker/config"
	"room-broker/domain"
	"room-broker/infra/kafka"
	"room-broker/infra/memory"
	"room-broker/infra/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRoomStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := InitRoomStore(ctx, config.Config{Store: config.StoreConfig{Backend: config.StoreMemory}})
		require.NoError(t, err)
		assert.IsType(t, &memory.RoomStore{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, port, err := net.SplitHostPort(mr.Addr())
		require.NoError(t, err)

		store, err := InitRoomStore(ctx, config.Config{
			Store: config.StoreConfig{Backend: config.StoreRedis},
			Redis: config.RedisConfig{Host: host, Port: port, RoomTTL: time.Minute},
		})
		require.NoError(t, err)
		assert.IsType(t, &redis.RoomStore{}, store)
		require.NoError(t, store.Create(ctx, domain.Room{ID: "a1b2c3d4", Members: []string{"c"}}))
		assert.Equal(t, time.Minute, mr.TTL("room:a1b2c3d4"))
		require.NoError(t, store.Close())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := InitRoomStore(ctx, config.Config{Store: config.StoreConfig{Backend: "etcd"}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestInitMessaging(t *testing.T) {
	disabled := InitMessaging(config.Config{})
	assert.IsType(t, noopPublisher{}, disabled)
	assert.NotPanics(t, func() { disabled.Publish(context.Background(), domain.RoomEvent{}) })
	assert.NoError(t, disabled.Close())

	enabled := InitMessaging(config.Config{Kafka: config.KafkaConfig{
		Enabled: true,
		Brokers: []string{"127.0.0.1:1"},
		Topic:   "room-events",
	}})
	assert.IsType(t, &kafka.Publisher{}, enabled)
	assert.NoError(t, enabled.Close())
}
