// Package config loads booking-service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "github.com/salonhub/scheduling/libs/config"
)

type BlockStoreKind string

const (
	BlocksInMemory BlockStoreKind = "memory"
	BlocksInRedis  BlockStoreKind = "redis"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"booking-service"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Port        string `env:"PORT" envDefault:"8083"`
	GRPCPort    string `env:"GRPC_PORT" envDefault:"9083"`
	Timezone    string `env:"TIMEZONE" envDefault:"UTC"`

	// DatabaseURL empty keeps appointments and staff in memory.
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	Kafka struct {
		Brokers    string `env:"KAFKA_BROKERS"`
		GroupID    string `env:"KAFKA_GROUP_ID" envDefault:"booking-service"`
		StaffTopic string `env:"KAFKA_STAFF_TOPIC" envDefault:"business.staff.updated.v1"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Blocks struct {
		Store        BlockStoreKind `env:"BLOCKS_STORE" envDefault:"memory"`
		GateBookings bool           `env:"BLOCKS_GATE_BOOKINGS" envDefault:"true"`
	}

	Store struct {
		Latency   time.Duration `env:"STORE_LATENCY" envDefault:"0s"`
		CacheSize int           `env:"STORE_CACHE_SIZE" envDefault:"256"`
	}

	Auth struct {
		JWTSecret string `env:"JWT_SECRET"`
		Issuer    string `env:"JWT_ISSUER"`
	}

	HTTP struct {
		RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
		CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
		BodyLimitBytes     int64         `env:"HTTP_BODY_LIMIT_BYTES" envDefault:"1048576"`
		RequestTimeout     time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"15s"`
	}

	loc *time.Location
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := libconfig.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Port, err = libconfig.Port("PORT", c.Port); err != nil {
		return err
	}
	if c.GRPCPort, err = libconfig.Port("GRPC_PORT", c.GRPCPort); err != nil {
		return err
	}

	c.Blocks.Store = BlockStoreKind(strings.ToLower(strings.TrimSpace(string(c.Blocks.Store))))
	switch c.Blocks.Store {
	case BlocksInMemory:
	case BlocksInRedis:
		if c.Redis.Addr == "" {
			return errors.New("BLOCKS_STORE=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("BLOCKS_STORE must be memory or redis (got %q)", c.Blocks.Store)
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	c.loc = loc
	return nil
}

func (c *Config) UsesDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// Location is the salon wall clock used for blocks and the calendar.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}
