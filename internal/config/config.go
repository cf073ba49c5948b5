package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
	Booking  BookingConfig
	Query    QueryConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type StoreConfig struct {
	// Driver is "postgres" or "memory". The memory store loses everything on
	// restart and serves local development and demos.
	Driver string
}

type PostgresConfig struct {
	User             string
	Password         string
	Name             string
	Host             string
	Port             int
	SSLMode          string
	MaxConns         int32
	StatementTimeout time.Duration
}

func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type RabbitMQConfig struct {
	// URL empty disables booking messages.
	URL string
	// Consume runs the booking message consumer in this process.
	Consume bool
}

type AuthConfig struct {
	JWTSecret string
}

type BookingConfig struct {
	MaxTravellers  int
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
}

type QueryConfig struct {
	PageSize  int
	TripTTL   time.Duration
	SearchTTL time.Duration
}

type LogConfig struct {
	Level string
	// SlogLevel is Level parsed by validate.
	SlogLevel slog.Level
	// File, when set, receives a copy of every log line with size based
	// rotation.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
		e   = &envReader{}
	)

	cfg.Server = ServerConfig{
		Host:            e.getString("SERVER_HOST", "localhost"),
		Port:            e.getInt("SERVER_PORT", 8080),
		ShutdownTimeout: e.getDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		CORSOrigins:     e.getList("CORS_ORIGINS"),
	}

	cfg.Store = StoreConfig{Driver: strings.ToLower(e.getString("STORE_DRIVER", DriverPostgres))}

	cfg.Postgres = PostgresConfig{
		User:             os.Getenv("POSTGRES_USER"),
		Password:         os.Getenv("POSTGRES_PASSWORD"),
		Name:             os.Getenv("POSTGRES_DB"),
		Host:             e.getString("POSTGRES_HOST", "localhost"),
		Port:             e.getInt("POSTGRES_PORT", 5432),
		SSLMode:          e.getString("POSTGRES_SSLMODE", "disable"),
		MaxConns:         int32(e.getInt("POSTGRES_MAX_CONNS", 10)),
		StatementTimeout: e.getDuration("POSTGRES_STATEMENT_TIMEOUT", 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  e.getBool("REDIS_ENABLED", true),
		Addr:     e.getString("REDIS_ADDR", "localhost:6380"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       e.getInt("REDIS_DB", 0),
	}

	cfg.RabbitMQ = RabbitMQConfig{
		URL:     os.Getenv("RABBITMQ_URL"),
		Consume: e.getBool("RABBITMQ_CONSUME", false),
	}

	cfg.Auth = AuthConfig{JWTSecret: os.Getenv("JWT_SECRET")}

	cfg.Booking = BookingConfig{
		MaxTravellers:  e.getInt("BOOKING_MAX_TRAVELLERS", 9),
		RateLimit:      e.getInt("BOOKING_RATE_LIMIT", 10),
		RateWindow:     e.getDuration("BOOKING_RATE_WINDOW", time.Minute),
		IdempotencyTTL: e.getDuration("BOOKING_IDEMPOTENCY_TTL", 24*time.Hour),
	}

	cfg.Query = QueryConfig{
		PageSize:  e.getInt("SEARCH_PAGE_SIZE", 50),
		TripTTL:   e.getDuration("TRIP_CACHE_TTL", 60*time.Second),
		SearchTTL: e.getDuration("SEARCH_CACHE_TTL", 30*time.Second),
	}

	cfg.Log = LogConfig{
		Level:      strings.ToLower(e.getString("LOG_LEVEL", "info")),
		File:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  e.getInt("LOG_FILE_MAX_SIZE_MB", 100),
		MaxBackups: e.getInt("LOG_FILE_MAX_BACKUPS", 5),
	}

	if e.err != nil {
		return nil, fmt.Errorf("%s: %w", op, e.err)
	}

	if err = cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" {
			return fmt.Errorf("missing POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return fmt.Errorf("missing POSTGRES_PASSWORD")
		}
		if c.Postgres.Name == "" {
			return fmt.Errorf("missing POSTGRES_DB")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}

	if c.Query.PageSize < 1 || c.Query.PageSize > 100 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be within [1, 100], got %d", c.Query.PageSize)
	}

	if c.Booking.MaxTravellers < 1 {
		return fmt.Errorf("BOOKING_MAX_TRAVELLERS must be positive, got %d", c.Booking.MaxTravellers)
	}

	if err := c.Log.SlogLevel.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("unknown LOG_LEVEL %q", c.Log.Level)
	}

	return nil
}

// envReader reads typed variables and keeps the first parse error.
type envReader struct {
	err error
}

func (e *envReader) getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) getInt(key string, def int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) getBool(key string, def bool) bool {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) getDuration(key string, def time.Duration) time.Duration {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return v
}

func (e *envReader) getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (e *envReader) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
