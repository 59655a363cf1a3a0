package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from defaults,
// then the optional YAML file named by BEACON_CONFIG, then environment
// variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Log       LogConfig       `yaml:"log"`
	// SelfHosted silences production-only warnings.
	SelfHosted bool `yaml:"self_hosted"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` //nolint:gosec // G117: DB connection config
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

// RedisConfig holds Redis connection settings. An empty Addr selects the
// in-process broker, which only fans out within a single instance.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` //nolint:gosec // G117: Redis connection config
	DB       int    `yaml:"db"`
}

// JWTConfig holds settings for the tokens issued by the host application.
type JWTConfig struct {
	Secret    string        `yaml:"secret"` //nolint:gosec // G117: JWT signing secret config
	Issuer    string        `yaml:"issuer"`
	AccessTTL time.Duration `yaml:"access_ttl"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// IngestConfig holds settings for the mutation notice endpoint.
type IngestConfig struct {
	ServiceKey     string        `yaml:"service_key"` //nolint:gosec // G117: shared secret config
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// WebSocketConfig holds per-connection limits.
type WebSocketConfig struct {
	ConnectRate  float64       `yaml:"connect_rate"`
	ConnectBurst int           `yaml:"connect_burst"`
	TypingRate   float64       `yaml:"typing_rate"`
	TypingBurst  int           `yaml:"typing_burst"`
	SendBuffer   int           `yaml:"send_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "beacon",
			DBName:   "app",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		JWT: JWTConfig{
			Issuer:    "beacon",
			AccessTTL: 15 * time.Minute,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:5173"},
		},
		Ingest: IngestConfig{
			PublishTimeout: 2 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ConnectRate:  2,
			ConnectBurst: 10,
			TypingRate:   1,
			TypingBurst:  3,
			SendBuffer:   64,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from the optional YAML file and environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, service key, DB password) must be set explicitly.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("BEACON_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("config.Load: %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's environment
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	log.Debug().Str("path", path).Msg("loading config file")

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables on top of file and default values.
func (c *Config) applyEnv() error {
	var err error

	c.Database.Host = getEnv("BEACON_DB_HOST", c.Database.Host)
	if c.Database.Port, err = getEnvInt("BEACON_DB_PORT", c.Database.Port); err != nil {
		return err
	}
	c.Database.User = getEnv("BEACON_DB_USER", c.Database.User)
	c.Database.Password = getEnv("BEACON_DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("BEACON_DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("BEACON_DB_SSLMODE", c.Database.SSLMode)
	if c.Database.MaxConns, err = getEnvInt("BEACON_DB_MAX_CONNS", c.Database.MaxConns); err != nil {
		return err
	}

	c.Redis.Addr = getEnv("BEACON_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("BEACON_REDIS_PASSWORD", c.Redis.Password)
	if c.Redis.DB, err = getEnvInt("BEACON_REDIS_DB", c.Redis.DB); err != nil {
		return err
	}

	c.JWT.Secret = getEnv("BEACON_JWT_SECRET", c.JWT.Secret)
	c.JWT.Issuer = getEnv("BEACON_JWT_ISSUER", c.JWT.Issuer)
	if c.JWT.AccessTTL, err = getEnvDuration("BEACON_JWT_ACCESS_TTL", c.JWT.AccessTTL); err != nil {
		return err
	}

	c.Server.Addr = getEnv("BEACON_SERVER_ADDR", c.Server.Addr)
	if c.Server.ReadTimeout, err = getEnvDuration("BEACON_SERVER_READ_TIMEOUT", c.Server.ReadTimeout); err != nil {
		return err
	}
	if c.Server.WriteTimeout, err = getEnvDuration("BEACON_SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout); err != nil {
		return err
	}
	if c.Server.ShutdownTimeout, err = getEnvDuration("BEACON_SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	c.Server.CORSOrigins = getEnvList("BEACON_CORS_ORIGINS", c.Server.CORSOrigins)

	c.Ingest.ServiceKey = getEnv("BEACON_SERVICE_KEY", c.Ingest.ServiceKey)
	if c.Ingest.PublishTimeout, err = getEnvDuration("BEACON_PUBLISH_TIMEOUT", c.Ingest.PublishTimeout); err != nil {
		return err
	}

	if c.WebSocket.ConnectRate, err = getEnvFloat("BEACON_WS_CONNECT_RATE", c.WebSocket.ConnectRate); err != nil {
		return err
	}
	if c.WebSocket.ConnectBurst, err = getEnvInt("BEACON_WS_CONNECT_BURST", c.WebSocket.ConnectBurst); err != nil {
		return err
	}
	if c.WebSocket.TypingRate, err = getEnvFloat("BEACON_WS_TYPING_RATE", c.WebSocket.TypingRate); err != nil {
		return err
	}
	if c.WebSocket.TypingBurst, err = getEnvInt("BEACON_WS_TYPING_BURST", c.WebSocket.TypingBurst); err != nil {
		return err
	}
	if c.WebSocket.SendBuffer, err = getEnvInt("BEACON_WS_SEND_BUFFER", c.WebSocket.SendBuffer); err != nil {
		return err
	}
	if c.WebSocket.WriteTimeout, err = getEnvDuration("BEACON_WS_WRITE_TIMEOUT", c.WebSocket.WriteTimeout); err != nil {
		return err
	}

	c.Log.Level = getEnv("BEACON_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("BEACON_LOG_FORMAT", c.Log.Format)

	if c.SelfHosted, err = getEnvBool("BEACON_SELF_HOSTED", c.SelfHosted); err != nil {
		return err
	}

	return nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("BEACON_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("BEACON_JWT_SECRET must be at least 32 characters")
	}

	// The ingest endpoint is unauthenticated without a service key.
	if c.Ingest.ServiceKey == "" {
		return errors.New("BEACON_SERVICE_KEY is required")
	}
	if len(c.Ingest.ServiceKey) < 16 {
		return errors.New("BEACON_SERVICE_KEY must be at least 16 characters")
	}

	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("BEACON_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}
	if c.Redis.Addr == "" {
		log.Warn().Msg("BEACON_REDIS_ADDR is empty; using the in-process broker, events will not reach other instances")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("BEACON_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("BEACON_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("BEACON_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("BEACON_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("BEACON_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Ingest.PublishTimeout <= 0 {
		return fmt.Errorf("BEACON_PUBLISH_TIMEOUT must be positive, got %s", c.Ingest.PublishTimeout)
	}
	if c.WebSocket.TypingRate <= 0 || c.WebSocket.TypingBurst < 1 {
		return fmt.Errorf("BEACON_WS_TYPING_RATE must be positive and BEACON_WS_TYPING_BURST >= 1, got %g/%d",
			c.WebSocket.TypingRate, c.WebSocket.TypingBurst)
	}
	if c.WebSocket.ConnectRate <= 0 || c.WebSocket.ConnectBurst < 1 {
		return fmt.Errorf("BEACON_WS_CONNECT_RATE must be positive and BEACON_WS_CONNECT_BURST >= 1, got %g/%d",
			c.WebSocket.ConnectRate, c.WebSocket.ConnectBurst)
	}
	if c.WebSocket.SendBuffer < 1 {
		return fmt.Errorf("BEACON_WS_SEND_BUFFER must be >= 1, got %d", c.WebSocket.SendBuffer)
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("BEACON_WS_WRITE_TIMEOUT must be positive, got %s", c.WebSocket.WriteTimeout)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("BEACON_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
