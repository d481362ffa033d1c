package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // Lambda images may ship without zoneinfo

	"github.com/joho/godotenv"
)

// Config holds the runtime settings shared by every entrypoint
type Config struct {
	DB    DBConfig
	Redis RedisConfig
	App   AppConfig
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// AppConfig holds business knobs
type AppConfig struct {
	Env                  string
	VATRate              string
	CodeRetryLimit       int
	AdminDefaultPassword string
	Timezone             string // IANA name; calendar days and code prefixes follow it
}

// LoadEnv loads environment variables from .env.local if APP_ENV is "local"
func LoadEnv() {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development" // Default to development if not set
		os.Setenv("APP_ENV", appEnv)
	}

	if appEnv == "local" {
		err := godotenv.Load(".env.local") // Assumes .env.local exists in root or where app is run
		if err != nil {
			log.Printf("Warning: .env.local file not found, or error loading: %v. Relying on system environment variables.", err)
		} else {
			log.Println("Loaded .env.local for local development.")
		}
	} else {
		log.Printf("Running in %s environment. Not loading .env.local.", appEnv)
	}
}

// Load collects configuration from the environment with defaults.
// Call LoadEnv first when .env.local should be honoured
func Load() Config {
	return Config{
		DB: DBConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", ""),
			Name:     getenv("DB_NAME", "paintcenter"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       atoienv("REDIS_DB", 0),
			TTL:      time.Duration(atoienv("REDIS_TTL_SECONDS", 300)) * time.Second,
		},
		App: AppConfig{
			Env:                  getenv("APP_ENV", "development"),
			VATRate:              getenv("VAT_RATE", "0.12"),
			CodeRetryLimit:       atoienv("CODE_RETRY_LIMIT", 10),
			AdminDefaultPassword: getenv("ADMIN_DEFAULT_PASSWORD", "admin123"),
			Timezone:             getenv("APP_TIMEZONE", "UTC"),
		},
	}
}

// DSN returns the lib/pq connection string
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsLocal reports whether the service runs on a developer machine
func (c AppConfig) IsLocal() bool {
	return c.Env == "local"
}

// Location loads the store timezone
func (c AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Clock returns time.Now in loc
func Clock(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
