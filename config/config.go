package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Hub        HubConfig        `mapstructure:"hub"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    string        `mapstructure:"allow_origins"`
}

// Routing modes for DispatcherConfig.Routing.
const (
	RoutingSingle = "single"
	RoutingRoom   = "room"
)

type DispatcherConfig struct {
	Routing   string          `mapstructure:"routing"`
	Shards    int             `mapstructure:"shards"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Global    LimitConfig   `mapstructure:"global"`
	PerClient LimitConfig   `mapstructure:"per_client"`
	// ClientTTL drops the limiter of a client that has been quiet this long.
	ClientTTL time.Duration `mapstructure:"client_ttl"`
}

// LimitConfig disables its limiter when RequestsPerMinute is zero.
type LimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type HubConfig struct {
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	AssociationTimeout time.Duration `mapstructure:"association_timeout"`
	SendBuffer         int           `mapstructure:"send_buffer"`
}

// Store backends for StoreConfig.Backend.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	RoomTTL  time.Duration `mapstructure:"room_ttl"`
}

type PostgresConfig struct {
	Port     string `mapstructure:"port"`
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

type KafkaConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Brokers  []string `mapstructure:"brokers"`
	Topic    string   `mapstructure:"topic"`
	ClientID string   `mapstructure:"client_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "room-broker")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.allow_origins", "*")

	v.SetDefault("dispatcher.routing", RoutingSingle)
	v.SetDefault("dispatcher.shards", 1)
	v.SetDefault("dispatcher.rate_limit.global.requests_per_minute", 6000)
	v.SetDefault("dispatcher.rate_limit.global.burst", 200)
	v.SetDefault("dispatcher.rate_limit.per_client.requests_per_minute", 120)
	v.SetDefault("dispatcher.rate_limit.per_client.burst", 20)
	v.SetDefault("dispatcher.rate_limit.client_ttl", 10*time.Minute)

	v.SetDefault("hub.idle_timeout", 30*time.Second)
	v.SetDefault("hub.association_timeout", 60*time.Second)
	v.SetDefault("hub.send_buffer", 256)

	v.SetDefault("store.backend", StoreMemory)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.room_ttl", time.Duration(0))

	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.user", "myuser")
	v.SetDefault("postgres.password", "mypassword")
	v.SetDefault("postgres.db", "roomdb")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "room-events")
	v.SetDefault("kafka.client_id", "room-broker")
}

// Read loads config.yaml from the usual locations and applies BROKER_*
// environment overrides on top of the defaults.
func Read() Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	v.AddConfigPath("/")

	config, err := load(v)
	if err != nil {
		zap.L().Error("Configuration could not be parsed", zap.Error(err))
	}
	return config
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)

	// ENV overrides with prefix BROKER_ and dot-to-underscore replacement
	v.SetEnvPrefix("BROKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		zap.L().Warn("Failed to read configuration file", zap.Error(err))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	return config, nil
}
