package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Cache      CacheConfig
	OTCMarkets OTCMarketsConfig
	Filing     FilingConfig
	Anthropic  AnthropicConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	URL            string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration. Publishing and consuming are disabled without brokers.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	RefreshTopic string
	GroupID      string
}

// RedisConfig holds the optional shared cache connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds ticker cache policy
type CacheConfig struct {
	Backend string // memory or redis
	MaxAge  time.Duration
	TTL     time.Duration // 0 disables automatic eviction
}

// OTCMarketsConfig holds upstream market data API configuration
type OTCMarketsConfig struct {
	BaseURL         string
	RateLimitCalls  int
	RateLimitWindow time.Duration
	NewsLimit       int
	Timeout         time.Duration
	FetchAttempts   int
	RetryDelay      time.Duration
}

// FilingConfig holds filing download configuration
type FilingConfig struct {
	BaseURL          string
	MaxDocumentBytes int64
}

// AnthropicConfig holds LLM configuration
type AnthropicConfig struct {
	APIKey            string
	Model             string
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
	BaseURL           string
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Output []string
	Dir    string
}

// Load reads configuration from environment variables, after loading a .env file if present
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "tickerresearch"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			URL:            getEnv("DATABASE_URL", ""),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvList("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "ticker-events"),
			RefreshTopic: getEnv("KAFKA_REFRESH_TOPIC", "ticker-refresh"),
			GroupID:      getEnv("KAFKA_GROUP_ID", "ticker-research-service"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "memory"),
			MaxAge:  getEnvDuration("CACHE_MAX_AGE", 30*time.Minute),
			TTL:     getEnvDuration("CACHE_TTL", 0),
		},
		OTCMarkets: OTCMarketsConfig{
			BaseURL:         getEnv("OTC_MARKETS_BASE_URL", "https://backend.otcmarkets.com/otcapi"),
			RateLimitCalls:  getEnvInt("OTC_RATE_LIMIT_CALLS", 30),
			RateLimitWindow: getEnvDuration("OTC_RATE_LIMIT_WINDOW", time.Second),
			NewsLimit:       getEnvInt("OTC_NEWS_LIMIT", 3),
			Timeout:         getEnvDuration("OTC_TIMEOUT", 30*time.Second),
			FetchAttempts:   getEnvInt("OTC_FETCH_ATTEMPTS", 3),
			RetryDelay:      getEnvDuration("OTC_RETRY_DELAY", time.Second),
		},
		Filing: FilingConfig{
			BaseURL:          getEnv("FILING_BASE_URL", "https://www.otcmarkets.com/otcapi"),
			MaxDocumentBytes: int64(getEnvInt("FILING_MAX_BYTES", 50*1024*1024)),
		},
		Anthropic: AnthropicConfig{
			APIKey:            getEnv("ANTHROPIC_API_KEY", ""),
			Model:             getEnv("ANTHROPIC_MODEL", "claude-3-opus-20240229"),
			MaxTokens:         getEnvInt("ANTHROPIC_MAX_TOKENS", 4000),
			Timeout:           getEnvDuration("ANTHROPIC_TIMEOUT", 5*time.Minute),
			RequestsPerMinute: getEnvInt("ANTHROPIC_RPM", 5),
			BaseURL:           getEnv("ANTHROPIC_BASE_URL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnvList("LOG_OUTPUT", []string{"console"}),
			Dir:    getEnv("LOG_DIR", "logs"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string.
// DATABASE_URL wins when set; the postgres:// scheme is accepted as-is by lib/pq.
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Enabled reports whether Kafka brokers are configured
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
