package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RemotePostgres = "postgres"
	RemoteRedis    = "redis"
	RemoteMemory   = "memory"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	LocalStore  LocalStoreConfig
	Sync        SyncConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	EnableMetrics bool
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL       string
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret string
}

// LocalStoreConfig selects the on-device store.
type LocalStoreConfig struct {
	Driver string
	Path   string
	// ErrorPolicy is what the domain store does with mirror and enqueue
	// failures: ignore, log or propagate.
	ErrorPolicy string
}

// SyncConfig controls the remote backend and how connectivity is probed.
type SyncConfig struct {
	RemoteDriver    string
	MonitorInterval time.Duration
	// RemoteTimeout bounds each remote call during a drain pass; zero means no bound.
	RemoteTimeout time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
	File     string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults that let the app start offline with no services.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "agroflow"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			EnableMetrics: getBool("SERVER_ENABLE_METRICS", false),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "agroflow"),
			User:            getString("DB_USER", "agroflow"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 0),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:       getString("REDIS_URL", "redis://localhost:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        getInt("REDIS_DB", 0),
			KeyPrefix: getString("REDIS_KEY_PREFIX", "agroflow:"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		LocalStore: LocalStoreConfig{
			Driver:      strings.ToLower(getString("LOCAL_STORE_DRIVER", "bolt")),
			Path:        os.Getenv("LOCAL_STORE_PATH"),
			ErrorPolicy: strings.ToLower(getString("PERSISTENCE_ERROR_POLICY", "log")),
		},
		Sync: SyncConfig{
			RemoteDriver:    strings.ToLower(getString("REMOTE_DRIVER", RemoteMemory)),
			MonitorInterval: getDuration("MONITOR_INTERVAL", 10*time.Second),
			RemoteTimeout:   getDuration("SYNC_REMOTE_TIMEOUT", 0),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
			File:     os.Getenv("LOG_FILE"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.LocalStore.Path == "" {
		cfg.LocalStore.Path = defaultLocalStorePath(cfg.LocalStore.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects unknown drivers and policies.
func (c *Config) Validate() error {
	switch c.LocalStore.Driver {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("config: LOCAL_STORE_DRIVER must be bolt or sqlite, got %q", c.LocalStore.Driver)
	}
	switch c.Sync.RemoteDriver {
	case RemotePostgres, RemoteRedis, RemoteMemory:
	default:
		return fmt.Errorf("config: REMOTE_DRIVER must be postgres, redis or memory, got %q", c.Sync.RemoteDriver)
	}
	switch c.LocalStore.ErrorPolicy {
	case "ignore", "log", "propagate":
	default:
		return fmt.Errorf("config: PERSISTENCE_ERROR_POLICY must be ignore, log or propagate, got %q", c.LocalStore.ErrorPolicy)
	}
	if c.Sync.MonitorInterval < time.Second {
		return fmt.Errorf("config: MONITOR_INTERVAL must be at least 1s, got %s", c.Sync.MonitorInterval)
	}
	return nil
}

// ConnString returns DATABASE_URL or a URL assembled from the DB_* parts.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
}

func defaultLocalStorePath(driver string) string {
	if driver == "sqlite" {
		return "./data/agroflow.sqlite"
	}
	return "./data/agroflow.db"
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
