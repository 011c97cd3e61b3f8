package config

import (
	"errors"
	"fmt"
)

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	switch c.Dispatcher.Routing {
	case RoutingSingle:
	case RoutingRoom:
		if c.Dispatcher.Shards < 1 {
			errs = append(errs, fmt.Errorf("dispatcher.shards must be at least 1, got %d", c.Dispatcher.Shards))
		}
	default:
		errs = append(errs, fmt.Errorf("dispatcher.routing must be %q or %q, got %q", RoutingSingle, RoutingRoom, c.Dispatcher.Routing))
	}

	for name, limit := range map[string]LimitConfig{
		"global":     c.Dispatcher.RateLimit.Global,
		"per_client": c.Dispatcher.RateLimit.PerClient,
	} {
		if limit.RequestsPerMinute < 0 || limit.Burst < 0 {
			errs = append(errs, fmt.Errorf("dispatcher.rate_limit.%s must not be negative", name))
		}
		if limit.RequestsPerMinute > 0 && limit.Burst == 0 {
			errs = append(errs, fmt.Errorf("dispatcher.rate_limit.%s.burst must be positive when the limit is enabled", name))
		}
	}

	if c.Dispatcher.RateLimit.ClientTTL < 0 {
		errs = append(errs, errors.New("dispatcher.rate_limit.client_ttl must not be negative"))
	}

	if c.Hub.IdleTimeout < 0 || c.Hub.AssociationTimeout < 0 {
		errs = append(errs, errors.New("hub timeouts must not be negative"))
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Host == "" || c.Redis.Port == "" {
			errs = append(errs, errors.New("redis.host and redis.port are required for the redis store"))
		}
	case StorePostgres:
		if c.Postgres.Host == "" || c.Postgres.DB == "" {
			errs = append(errs, errors.New("postgres.host and postgres.db are required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of %q, %q, %q, got %q",
			StoreMemory, StoreRedis, StorePostgres, c.Store.Backend))
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		errs = append(errs, errors.New("kafka.brokers and kafka.topic are required when kafka is enabled"))
	}

	return errors.Join(errs...)
}

// DSN builds a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode)
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}
