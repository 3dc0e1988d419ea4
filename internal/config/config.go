// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ukydev/fleet-booking/internal/clock"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// DefaultEnvFile is read when present and no file is named explicitly.
const DefaultEnvFile = ".env"

// Config is the full service configuration.
type Config struct {
	Port           string
	Timezone       string
	MetricsEnabled bool
	Store          StoreConfig
	MQTT           MQTTConfig
	RateLimit      RateLimitConfig
	Log            LogConfig
}

// StoreConfig selects and configures vehicle persistence.
type StoreConfig struct {
	Backend  string
	MongoURI string
	MongoDB  string
}

// MQTTConfig configures vehicle event publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      int
}

// Enabled reports whether events should be published.
func (c MQTTConfig) Enabled() bool { return c.Broker != "" }

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads envFile into the environment without overriding variables that
// are already set, then builds the configuration. An empty envFile loads
// DefaultEnvFile if it exists.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", DefaultEnvFile, err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment.
func FromEnv() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getenvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getenvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		Timezone:       getenv("FLEET_TIMEZONE", clock.DefaultTimezone),
		MetricsEnabled: boolVar("METRICS_ENABLED", true),
		Store: StoreConfig{
			Backend:  strings.ToLower(getenv("STORE_BACKEND", BackendMemory)),
			MongoURI: os.Getenv("MONGO_URI"),
			MongoDB:  getenv("MONGO_DB", "fleet"),
		},
		MQTT: MQTTConfig{
			Broker:   os.Getenv("MQTT_BROKER"),
			ClientID: getenv("MQTT_CLIENT_ID", "fleet-booking"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			Topic:    getenv("MQTT_TOPIC", "fleet/vehicles"),
			QoS:      intVar("MQTT_QOS", 1),
		},
		RateLimit: RateLimitConfig{
			Requests: intVar("RATE_LIMIT_REQUESTS", 100),
			Window:   time.Duration(intVar("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the %s backend", BackendMongo)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return c.Log.Validate()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}
