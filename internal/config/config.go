package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

type Config struct {
	ServerAddr   string
	StoreDriver  string
	DatabaseURL  string
	BoltPath     string
	AutoMigrate  bool
	GinMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("invalid .env file: %w", err)
		}
		log.Println("[INFO] Config: no .env file found, using environment variables")
	}

	cfg := Config{
		ServerAddr:   getenv("SERVER_ADDR", ":8080"),
		StoreDriver:  getenv("STORE_DRIVER", DriverBolt),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		BoltPath:     getenv("BOLT_PATH", "library.db"),
		AutoMigrate:  true,
		GinMode:      os.Getenv("GIN_MODE"),
		MaxOpenConns: 20,
		MaxIdleConns: 10,
		ConnLifetime: time.Hour,
	}

	if val := os.Getenv("AUTO_MIGRATE"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTO_MIGRATE %q: %w", val, err)
		}
		cfg.AutoMigrate = b
	}

	switch cfg.StoreDriver {
	case DriverBolt:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL environment variable is required for the %s driver", DriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
