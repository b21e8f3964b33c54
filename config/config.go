package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Database   DatabaseConfig    `yaml:"database"`
	Auth       AuthConfig        `yaml:"auth"`
	Push       PushConfig        `yaml:"push"`
	WorkerPool WorkerPoolConfig  `yaml:"worker_pool"`
	Sweeper    SweeperConfig     `yaml:"sweeper"`
	Booking    BookingConfig     `yaml:"booking"`
	Catalog    []CatalogBuilding `yaml:"catalog"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// CacheTTL is the GET response cache lifetime.
func (s ServerConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres, mysql or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	// EnableExclusionConstraint installs the btree_gist overlap constraint on PostgreSQL.
	EnableExclusionConstraint bool `yaml:"enable_exclusion_constraint"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// SweeperConfig configures the stale sign-in sweep.
type SweeperConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Schedule     string `yaml:"schedule"` // standard 5-field cron expression
	GraceMinutes int    `yaml:"grace_minutes"`
}

// Grace is how long past a reservation's end an active sign-in is tolerated.
func (s SweeperConfig) Grace() time.Duration {
	return time.Duration(s.GraceMinutes) * time.Minute
}

// BookingConfig holds the rules that depend on the campus.
type BookingConfig struct {
	Timezone  string `yaml:"timezone"`
	OpenFrom  string `yaml:"open_from"`  // HH:MM
	OpenUntil string `yaml:"open_until"` // HH:MM
}

// CatalogBuilding is a building provisioned at start-up.
type CatalogBuilding struct {
	Name  string        `yaml:"name"`
	Code  string        `yaml:"code"`
	Rooms []CatalogRoom `yaml:"rooms"`
}

// CatalogRoom is a room provisioned at start-up.
type CatalogRoom struct {
	Name     string `yaml:"name"`
	Floor    int    `yaml:"floor"`
	Capacity int    `yaml:"capacity"`
}

// Load reads the configuration from the given path and overlays environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment only")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Sweeper.Schedule == "" {
		cfg.Sweeper.Schedule = "*/5 * * * *"
	}
	if cfg.Sweeper.GraceMinutes <= 0 {
		cfg.Sweeper.GraceMinutes = 30
	}

	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "UTC"
	}
	if cfg.Booking.OpenFrom == "" {
		cfg.Booking.OpenFrom = "00:00"
	}
	if cfg.Booking.OpenUntil == "" {
		cfg.Booking.OpenUntil = "24:00"
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking.timezone %q: %w", c.Booking.Timezone, err)
	}
	for _, b := range c.Catalog {
		if b.Name == "" {
			return fmt.Errorf("catalog building without a name")
		}
		for _, r := range b.Rooms {
			if r.Name == "" {
				return fmt.Errorf("catalog building %q has a room without a name", b.Name)
			}
			if r.Capacity < 1 {
				return fmt.Errorf("catalog room %q/%q must have capacity >= 1", b.Name, r.Name)
			}
		}
	}
	return nil
}

// Location resolves the booking timezone. Load has already validated it.
func (b BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
