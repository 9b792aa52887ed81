// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// TypesenseConfig points at the search index that stores scan responses.
type TypesenseConfig struct {
	Host   string
	Port   int
	APIKey string
}

// RedisConfig is optional; an empty URL disables the analytics cache.
type RedisConfig struct {
	URL      string
	Password string
	TTL      time.Duration
}

// ProvidersConfig carries everything the provider constructors need. It is passed
// explicitly instead of being read from the environment at call time.
type ProvidersConfig struct {
	OpenAIAPIKey        string
	OpenAIModel         string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiFallbacks     []string
	PerplexityAPIKey    string
	PerplexityModel     string
	PerplexityBaseURL   string
	AnthropicAPIKey     string
	AnthropicModel      string
	RequestsPerSecond   float64
	RetryMaxAttempts    int
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
	DailyScanPlatform   string
	DailyScanMaxQueries int
}

type Config struct {
	Port              string
	Environment       string
	LogLevel          string
	InngestEventKey   string
	InngestSigningKey string
	DatabaseURL       string
	SlackWebhookURL   string
	Database          DatabaseConfig
	Providers         ProvidersConfig
	Typesense         TypesenseConfig
	Redis             RedisConfig
}

// DatabaseConfig mirrors the connection settings of the scans database.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// DefaultGeminiModels is the fallback order tried when a configured Gemini model
// is not available to the API key.
var DefaultGeminiModels = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
	"gemini-1.5-pro",
}

func Load() *Config {
	config := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SlackWebhookURL:   os.Getenv("SLACK_WEBHOOK_URL"),
	}

	dbConfig, err := parseDatabaseConfig()
	if err != nil {
		// If DATABASE_URL parsing fails, try individual env vars as fallback
		dbConfig = DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "visibility"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		}
	}
	config.Database = dbConfig

	config.Providers = ProvidersConfig{
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		GeminiFallbacks:     getEnvList("GEMINI_FALLBACK_MODELS", DefaultGeminiModels),
		PerplexityAPIKey:    os.Getenv("PERPLEXITY_API_KEY"),
		PerplexityModel:     getEnv("PERPLEXITY_MODEL", "sonar"),
		PerplexityBaseURL:   getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:      getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		RequestsPerSecond:   getEnvFloat("PROVIDER_RPS", 2),
		RetryMaxAttempts:    getEnvInt("PROVIDER_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:      time.Duration(getEnvInt("PROVIDER_RETRY_BASE_MS", 1500)) * time.Millisecond,
		RetryMaxDelay:       time.Duration(getEnvInt("PROVIDER_RETRY_MAX_MS", 60000)) * time.Millisecond,
		DailyScanPlatform:   getEnv("DAILY_SCAN_PLATFORM", "gemini"),
		DailyScanMaxQueries: getEnvInt("DAILY_SCAN_MAX_QUERIES", 10),
	}

	config.Typesense = TypesenseConfig{
		Host:   getEnv("TYPESENSE_HOST", "typesense"),
		Port:   getEnvInt("TYPESENSE_PORT", 8108),
		APIKey: os.Getenv("TYPESENSE_API_KEY"),
	}
	config.Redis = RedisConfig{
		URL:      os.Getenv("REDIS_URL"),
		Password: os.Getenv("REDIS_PASSWORD"),
		TTL:      time.Duration(getEnvInt("ANALYTICS_CACHE_TTL_SECONDS", 300)) * time.Second,
	}

	return config
}

// IsDevelopment reports whether the service runs without production safeguards.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == ""
}

func parseDatabaseConfig() (DatabaseConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL not set")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if len(parsedURL.Path) < 2 {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: missing database name")
	}

	config := DatabaseConfig{
		Host:            parsedURL.Hostname(),
		Port:            5432, // default
		User:            parsedURL.User.Username(),
		Name:            parsedURL.Path[1:], // remove leading slash
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
	}
	if mode := parsedURL.Query().Get("sslmode"); mode != "" {
		config.SSLMode = mode
	}

	if password, ok := parsedURL.User.Password(); ok {
		config.Password = password
	}

	if parsedURL.Port() != "" {
		if port, err := strconv.Atoi(parsedURL.Port()); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

// DSN renders the lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
