package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Evaluation     EvaluationConfig     `mapstructure:"evaluation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	SeedDemo bool   `mapstructure:"seed_demo"`
}

// DatabaseConfig points at the PostgreSQL catalog/interaction source. An
// empty URL disables database sync.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig configures the recommendation result cache. An empty URL
// disables caching.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  struct {
		CatalogSync   string `mapstructure:"catalog_sync"`
		SnapshotBuilt string `mapstructure:"snapshot_built"`
	} `mapstructure:"topics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RecommendationConfig struct {
	CategoryBoost       float64 `mapstructure:"category_boost"`
	BrandBoost          float64 `mapstructure:"brand_boost"`
	ContentWeight       float64 `mapstructure:"content_weight"`
	CollaborativeWeight float64 `mapstructure:"collaborative_weight"`
	CategoryMaxItems    int     `mapstructure:"category_max_items"`
	MaxFeatures         int     `mapstructure:"max_features"`
	ItemTopN            int     `mapstructure:"item_top_n"`
	UserTopN            int     `mapstructure:"user_top_n"`
}

type EvaluationConfig struct {
	K               int     `mapstructure:"k"`
	TestFraction    float64 `mapstructure:"test_fraction"`
	MinInteractions int     `mapstructure:"min_interactions"`
	PositiveActions string  `mapstructure:"positive_actions"`
	Workers         int     `mapstructure:"workers"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// RateLimitConfig is a per-client token bucket. Zero RequestsPerSecond
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.seed_demo", true)

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_time", "15m")
	v.SetDefault("database.max_lifetime", "1h")
	v.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", "2s")
	v.SetDefault("redis.ttl", "15m")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.group_id", "sage-engine")
	v.SetDefault("kafka.topics.catalog_sync", "catalog-sync")
	v.SetDefault("kafka.topics.snapshot_built", "snapshot-built")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Recommendation defaults
	v.SetDefault("recommendation.category_boost", 1.15)
	v.SetDefault("recommendation.brand_boost", 1.08)
	v.SetDefault("recommendation.content_weight", 0.7)
	v.SetDefault("recommendation.collaborative_weight", 0.3)
	v.SetDefault("recommendation.category_max_items", 3)
	v.SetDefault("recommendation.max_features", 5000)
	v.SetDefault("recommendation.item_top_n", 10)
	v.SetDefault("recommendation.user_top_n", 12)

	// Evaluation defaults
	v.SetDefault("evaluation.k", 10)
	v.SetDefault("evaluation.test_fraction", 0.2)
	v.SetDefault("evaluation.min_interactions", 5)
	v.SetDefault("evaluation.positive_actions", "purchase,add_to_cart,click")
	v.SetDefault("evaluation.workers", 4)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"http://localhost:5000", "http://localhost:3000"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"*"})
	v.SetDefault("security.rate_limit.requests_per_second", 0)
	v.SetDefault("security.rate_limit.burst", 20)
}
