// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo.

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config is the full process configuration.
type Config struct {
	Server      Server
	Store       StoreConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Validation  ValidationConfig
	Wizard      WizardConfig
	Environment string
	LogLevel    string
	Tracing     bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Driver         string
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
}

// RedisConfig configures the wizard draft store. An empty URL keeps drafts
// in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit sink. No brokers means audit events are
// written to the log instead.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ValidationConfig struct {
	StrictCRP             bool
	SpecialtiesFile       string
	SpecialtiesRestricted bool
	MinimumAge            int
	// Timezone names the IANA zone whose calendar decides a person's age.
	Timezone string
}

type WizardConfig struct {
	DraftTTL time.Duration
}

// IsProduction reports whether the process runs with production defaults.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

// Load reads the optional config file at path, then lets environment
// variables override it. Keys match the environment variable names.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Server: Server{
			Addr:            v.GetString("MINDFLOW_ADDR"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(v.GetString("STORE_DRIVER")),
			DatabaseURL:    v.GetString("DATABASE_URL"),
			DatabaseDriver: v.GetString("DATABASE_DRIVER"),
			SQLitePath:     v.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers: splitBrokers(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Validation: ValidationConfig{
			StrictCRP:             v.GetBool("CRP_STRICT"),
			SpecialtiesFile:       v.GetString("SPECIALTIES_FILE"),
			SpecialtiesRestricted: v.GetBool("SPECIALTIES_RESTRICTED"),
			MinimumAge:            v.GetInt("MINIMUM_AGE"),
			Timezone:              v.GetString("TIMEZONE"),
		},
		Wizard: WizardConfig{
			DraftTTL: v.GetDuration("WIZARD_DRAFT_TTL"),
		},
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		Tracing:     v.GetBool("TRACING_ENABLED"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
		if c.Store.DatabaseDriver != "pgx" && c.Store.DatabaseDriver != "postgres" {
			return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Store.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Validation.MinimumAge < 0 {
		return errors.New("MINIMUM_AGE cannot be negative")
	}
	if _, err := time.LoadLocation(c.Validation.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Validation.Timezone, err)
	}
	if c.Wizard.DraftTTL <= 0 {
		return errors.New("WIZARD_DRAFT_TTL must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MINDFLOW_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_DRIVER", "pgx")
	v.SetDefault("SQLITE_PATH", "mindflow.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "psychologist-audit")
	v.SetDefault("CRP_STRICT", false)
	v.SetDefault("SPECIALTIES_FILE", "")
	v.SetDefault("SPECIALTIES_RESTRICTED", false)
	v.SetDefault("WIZARD_DRAFT_TTL", 30*time.Minute)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("MINIMUM_AGE", 18)
	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
