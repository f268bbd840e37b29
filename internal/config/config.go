package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variables of the service
const EnvPrefix = "RESERVE_SVC"

// Config represents the complete application configuration
type Config struct {
	Server           ServerConfig           `mapstructure:"server"`
	Database         DatabaseConfig         `mapstructure:"database"`
	Redis            RedisConfig            `mapstructure:"redis"`
	Auth             AuthConfig             `mapstructure:"auth"`
	Logging          LoggingConfig          `mapstructure:"logging"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
	CircuitBreaker   CircuitBreakerConfig   `mapstructure:"circuit_breaker"`
	Messaging        MessagingConfig        `mapstructure:"messaging"`
	Reservation      ReservationConfig      `mapstructure:"reservation"`
	Timeouts         TimeoutsConfig         `mapstructure:"timeouts"`
	Reconciler       ReconcilerConfig       `mapstructure:"reconciler"`
	Metrics          MetricsConfig          `mapstructure:"metrics"`
	Tracing          TracingConfig          `mapstructure:"tracing"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	InternalPort string        `mapstructure:"internal_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	URL               string        `mapstructure:"url"`
	MaxConnections    int           `mapstructure:"max_connections"`
	MaxIdleTime       time.Duration `mapstructure:"max_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	PingTimeout       time.Duration `mapstructure:"ping_timeout"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	AuthURL        string        `mapstructure:"auth_url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	PublicKeyURL    string        `mapstructure:"public_key_url"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// ExternalServicesConfig contains external service URLs and configuration
type ExternalServicesConfig struct {
	ItemService ExternalServiceConfig `mapstructure:"item_service"`
	UserService ExternalServiceConfig `mapstructure:"user_service"`
}

// ExternalServiceConfig contains configuration for an external service
type ExternalServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CircuitBreakerConfig contains settings of the item catalog circuit breaker
type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// MessagingConfig contains Kafka producer configuration
type MessagingConfig struct {
	Brokers         string        `mapstructure:"brokers"`
	AttachmentTopic string        `mapstructure:"attachment_topic"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// BrokerList returns the comma separated broker list as a slice
func (m MessagingConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(m.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ReservationConfig contains reservation domain settings
type ReservationConfig struct {
	Timezone        string        `mapstructure:"timezone"`
	ProfileCacheTTL time.Duration `mapstructure:"profile_cache_ttl"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

// Location resolves the configured timezone used for day boundaries
func (r ReservationConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reservation.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// TimeoutsConfig contains various timeout configurations
type TimeoutsConfig struct {
	HTTPMiddleware     time.Duration `mapstructure:"http_middleware"`
	JWTValidatorClient time.Duration `mapstructure:"jwt_validator_client"`
	GracefulShutdown   time.Duration `mapstructure:"graceful_shutdown"`
	DatabaseHealth     time.Duration `mapstructure:"database_health"`
	RedisHealth        time.Duration `mapstructure:"redis_health"`
}

// ReconcilerConfig contains configuration of the pending release reconciler
type ReconcilerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
}

// MetricsConfig contains metrics collection configuration
type MetricsConfig struct {
	UpdateInterval time.Duration `mapstructure:"update_interval"`
}

// TracingConfig contains OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

// requiredFields maps configuration keys to the environment variables that must provide them
var requiredFields = map[string]string{
	"database.url":         EnvPrefix + "_DATABASE_URL",
	"redis.url":            EnvPrefix + "_REDIS_URL",
	"redis.auth_url":       EnvPrefix + "_REDIS_AUTH_URL",
	"server.port":          EnvPrefix + "_SERVER_PORT",
	"server.internal_port": EnvPrefix + "_SERVER_INTERNAL_PORT",
	"auth.public_key_url":  EnvPrefix + "_AUTH_PUBLIC_KEY_URL",
	"external_services.item_service.base_url": EnvPrefix + "_EXTERNAL_SERVICES_ITEM_SERVICE_BASE_URL",
	"external_services.user_service.base_url": EnvPrefix + "_EXTERNAL_SERVICES_USER_SERVICE_BASE_URL",
	"messaging.brokers":                       EnvPrefix + "_MESSAGING_BROKERS",
}

// Load loads configuration from .env, config file and environment variables
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/reserve-service")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range requiredFields {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads variables from an optional dotenv file without overriding the environment
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "5m")
	viper.SetDefault("database.health_check_period", "1m")
	viper.SetDefault("database.ping_timeout", "5s")
	viper.SetDefault("database.auto_migrate", true)

	// Redis defaults
	viper.SetDefault("redis.max_connections", 10)
	viper.SetDefault("redis.read_timeout", "3s")
	viper.SetDefault("redis.write_timeout", "3s")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.ping_timeout", "5s")

	// Auth defaults
	viper.SetDefault("auth.cache_ttl", "1h")
	viper.SetDefault("auth.refresh_interval", "24h")

	viper.SetDefault("logging.level", "info")

	// External services defaults (timeouts only, no URL defaults)
	viper.SetDefault("external_services.item_service.timeout", "5s")
	viper.SetDefault("external_services.user_service.timeout", "3s")

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", "60s")
	viper.SetDefault("circuit_breaker.timeout", "30s")
	viper.SetDefault("circuit_breaker.failure_threshold", 5)

	// Messaging defaults
	viper.SetDefault("messaging.attachment_topic", "attachment-association")
	viper.SetDefault("messaging.write_timeout", "5s")

	// Reservation defaults
	viper.SetDefault("reservation.timezone", "UTC")
	viper.SetDefault("reservation.profile_cache_ttl", "5m")
	viper.SetDefault("reservation.default_page_size", 20)
	viper.SetDefault("reservation.max_page_size", 100)

	// Timeout defaults
	viper.SetDefault("timeouts.http_middleware", "60s")
	viper.SetDefault("timeouts.jwt_validator_client", "10s")
	viper.SetDefault("timeouts.graceful_shutdown", "30s")
	viper.SetDefault("timeouts.database_health", "2s")
	viper.SetDefault("timeouts.redis_health", "2s")

	// Reconciler defaults
	viper.SetDefault("reconciler.interval", "1m")
	viper.SetDefault("reconciler.timeout", "30s")
	viper.SetDefault("reconciler.batch_size", 50)

	viper.SetDefault("metrics.update_interval", "10s")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "")
	viper.SetDefault("tracing.service_name", "reserve-service")
	viper.SetDefault("tracing.sample_ratio", 1.0)
	viper.SetDefault("tracing.insecure", true)
}

// Validate validates the configuration and ensures required fields are present
func (c *Config) Validate() error {
	for field, envVar := range requiredFields {
		if !viper.IsSet(field) {
			return fmt.Errorf("required configuration field '%s' is not set (use environment variable %s)", field, envVar)
		}
		if viper.GetString(field) == "" {
			return fmt.Errorf("required configuration field '%s' cannot be empty (set environment variable %s)", field, envVar)
		}
	}

	timeouts := map[string]time.Duration{
		"server.read_timeout":                    c.Server.ReadTimeout,
		"server.write_timeout":                   c.Server.WriteTimeout,
		"database.ping_timeout":                  c.Database.PingTimeout,
		"redis.ping_timeout":                     c.Redis.PingTimeout,
		"external_services.item_service.timeout": c.ExternalServices.ItemService.Timeout,
		"external_services.user_service.timeout": c.ExternalServices.UserService.Timeout,
		"circuit_breaker.timeout":                c.CircuitBreaker.Timeout,
		"messaging.write_timeout":                c.Messaging.WriteTimeout,
		"reconciler.interval":                    c.Reconciler.Interval,
		"reconciler.timeout":                     c.Reconciler.Timeout,
	}

	for name, timeout := range timeouts {
		if timeout <= 0 {
			return fmt.Errorf("timeout '%s' must be positive, got %v", name, timeout)
		}
		if timeout > 10*time.Minute {
			return fmt.Errorf("timeout '%s' seems too large, got %v", name, timeout)
		}
	}

	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database.max_connections must be positive, got %d", c.Database.MaxConnections)
	}
	if c.Redis.MaxConnections <= 0 {
		return fmt.Errorf("redis.max_connections must be positive, got %d", c.Redis.MaxConnections)
	}
	if c.Redis.MaxRetries < 0 {
		return fmt.Errorf("redis.max_retries cannot be negative, got %d", c.Redis.MaxRetries)
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be positive")
	}
	if c.Reconciler.BatchSize <= 0 {
		return fmt.Errorf("reconciler.batch_size must be positive, got %d", c.Reconciler.BatchSize)
	}
	if c.Reservation.DefaultPageSize <= 0 || c.Reservation.DefaultPageSize > c.Reservation.MaxPageSize {
		return fmt.Errorf("reservation.default_page_size must be in (0, %d], got %d",
			c.Reservation.MaxPageSize, c.Reservation.DefaultPageSize)
	}
	if _, err := c.Reservation.Location(); err != nil {
		return err
	}
	if len(c.Messaging.BrokerList()) == 0 {
		return fmt.Errorf("messaging.brokers must contain at least one broker")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio)
	}

	return nil
}
