package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/pavel-fokin/pdf-toolbox/internal/logging"
)

// Metadata backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	Addr            string        `env:"PDF_TOOLBOX_ADDR" envDefault:":8080"`
	UploadDir       string        `env:"PDF_TOOLBOX_UPLOAD_DIR" envDefault:"uploads"`
	MaxSize         int64         `env:"PDF_TOOLBOX_MAX_SIZE" envDefault:"10485760"`
	Retention       time.Duration `env:"PDF_TOOLBOX_RETENTION" envDefault:"1h"`
	SweepInterval   time.Duration `env:"PDF_TOOLBOX_SWEEP_INTERVAL" envDefault:"5m"`
	AllowedTypes    []string      `env:"PDF_TOOLBOX_ALLOWED_TYPES" envSeparator:","`
	MetadataBackend string        `env:"PDF_TOOLBOX_METADATA_BACKEND" envDefault:"memory"`
	DBPath          string        `env:"PDF_TOOLBOX_DB_PATH" envDefault:"pdf-toolbox.db"`
	AdminToken      string        `env:"PDF_TOOLBOX_ADMIN_TOKEN"`
	RateLimit       int           `env:"PDF_TOOLBOX_RATE_LIMIT" envDefault:"60"`
	Log             logging.Config
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.MaxSize <= 0:
		return errors.New("PDF_TOOLBOX_MAX_SIZE must be positive")
	case c.Retention <= 0:
		return errors.New("PDF_TOOLBOX_RETENTION must be positive")
	case c.SweepInterval <= 0:
		return errors.New("PDF_TOOLBOX_SWEEP_INTERVAL must be positive")
	case c.RateLimit < 0:
		return errors.New("PDF_TOOLBOX_RATE_LIMIT must not be negative")
	case c.UploadDir == "":
		return errors.New("PDF_TOOLBOX_UPLOAD_DIR is required")
	}

	switch c.MetadataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("PDF_TOOLBOX_DB_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}
	return nil
}
