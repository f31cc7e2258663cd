package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Identity IdentityConfig
	Google   GoogleConfig
	Backend  BackendConfig
	Jobs     JobsConfig
	State    StateConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
	// StaticDir holds the built frontend; empty serves no pages
	StaticDir string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	MaxOpenConns   int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type SessionConfig struct {
	// Secret keys session tickets and sealed identity sessions (at least 32 bytes)
	Secret    []byte
	TicketTTL time.Duration
	// SecureCookies marks cookies Secure; on outside dev
	SecureCookies bool
}

type IdentityConfig struct {
	FirebaseAPIKey    string
	FirebaseProjectID string
	// Emulator base URLs; empty uses the Google endpoints
	IdentityToolkitURL string
	SecureTokenURL     string
	// VerifyTokens checks ID tokens against the project's signing keys
	VerifyTokens bool
	Timeout      time.Duration
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

type JobsConfig struct {
	// URL of the jobs API; empty uses the backend URL
	URL      string
	UseMocks bool
	// MockLatency simulates network delay in mock mode
	MockLatency time.Duration
}

type StateConfig struct {
	Backend string // memory, redis or postgres
	// TTL expires client state in Redis
	TTL time.Duration
	// IdleTimeout drops idle client instances from memory
	IdleTimeout time.Duration
	// SweepSchedule is the cron spec of the idle sweep
	SweepSchedule string
	// PurgeAfter deletes Postgres client state untouched for this long
	PurgeAfter time.Duration
}

const (
	StateMemory   = "memory"
	StateRedis    = "redis"
	StatePostgres = "postgres"
)

// Load reads configuration from environment variables
// Call godotenv.Load() before this if using .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
			StaticDir:       getEnv("STATIC_DIR", ""),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "work4u"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Secret:        []byte(getEnv("SESSION_SECRET", "")),
			TicketTTL:     getDurationEnv("SESSION_TICKET_TTL", 30*24*time.Hour),
			SecureCookies: getBoolEnv("SESSION_SECURE_COOKIES", env != "dev"),
		},
		Identity: IdentityConfig{
			FirebaseAPIKey:     getEnv("FIREBASE_API_KEY", ""),
			FirebaseProjectID:  getEnv("FIREBASE_PROJECT_ID", ""),
			IdentityToolkitURL: getEnv("FIREBASE_IDENTITY_TOOLKIT_URL", ""),
			SecureTokenURL:     getEnv("FIREBASE_SECURE_TOKEN_URL", ""),
			VerifyTokens:       getBoolEnv("FIREBASE_VERIFY_TOKENS", true),
			Timeout:            getDurationEnv("FIREBASE_TIMEOUT", 10*time.Second),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			CallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/auth/google/callback"),
		},
		Backend: BackendConfig{
			URL:     getEnv("API_URL", "http://localhost:8000"),
			Timeout: getDurationEnv("API_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			URL:         getEnv("JOBS_API_URL", ""),
			UseMocks:    getBoolEnv("JOBS_USE_MOCKS", true),
			MockLatency: getDurationEnv("JOBS_MOCK_LATENCY", 0),
		},
		State: StateConfig{
			Backend:       strings.ToLower(getEnv("STATE_BACKEND", StateMemory)),
			TTL:           getDurationEnv("STATE_TTL", 30*24*time.Hour),
			IdleTimeout:   getDurationEnv("STATE_IDLE_TIMEOUT", 30*time.Minute),
			SweepSchedule: getEnv("STATE_SWEEP_SCHEDULE", "@every 5m"),
			PurgeAfter:    getDurationEnv("STATE_PURGE_AFTER", 30*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values the server cannot start without
func (c *Config) Validate() error {
	// Ticket and seal keys are derived from the secret with HKDF
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.Session.Secret))
	}
	if c.Identity.FirebaseAPIKey == "" {
		return fmt.Errorf("FIREBASE_API_KEY is required")
	}
	if c.Identity.VerifyTokens && c.Identity.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required when FIREBASE_VERIFY_TOKENS is on")
	}

	switch c.State.Backend {
	case StateMemory, StateRedis, StatePostgres:
	default:
		return fmt.Errorf("STATE_BACKEND must be one of memory, redis, postgres, got %q", c.State.Backend)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Address returns the listen address (:port)
func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// Enabled reports whether Google sign-in is configured
func (c *GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// JobsURL returns the jobs API base URL
func (c *Config) JobsURL() string {
	if c.Jobs.URL != "" {
		return c.Jobs.URL
	}
	return c.Backend.URL
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getDurationEnv accepts whole seconds or a Go duration string ("90s", "5m")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return d
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return b
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
