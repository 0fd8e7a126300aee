// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Archive backends.
const (
	ArchiveNone     = "none"
	ArchivePostgres = "postgres"
	ArchiveSQLite   = "sqlite"
	ArchiveR2       = "r2"
)

type Config struct {
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":3000"`
	WSAddr         string   `env:"WS_ADDR" envDefault:":3001"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Signs connection tokens. Empty means a fresh random key per process.
	ConnectionSecret string `env:"CONNECTION_SECRET"`

	ReplayCapacity     int           `env:"REPLAY_CAPACITY" envDefault:"1000"`
	AIHistorySize      int           `env:"AI_HISTORY_SIZE" envDefault:"50"`
	MatchCompleteDelay time.Duration `env:"MATCH_COMPLETE_DELAY" envDefault:"3s"`
	SendBuffer         int           `env:"SEND_BUFFER" envDefault:"64"`
	ChatRatePerSec     float64       `env:"CHAT_RATE_PER_SEC" envDefault:"2"`

	TournamentTTL   time.Duration `env:"TOURNAMENT_TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	Archive ArchiveConfig
	Log     LogConfig
}

type ArchiveConfig struct {
	Backend     string `env:"ARCHIVE_BACKEND" envDefault:"none"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"replays.db"`
	Workers     int    `env:"ARCHIVE_WORKERS" envDefault:"4"`
	QueueSize   int    `env:"ARCHIVE_QUEUE" envDefault:"256"`

	R2AccountID string `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKey string `env:"R2_ACCESS_KEY_ID"`
	R2Secret    string `env:"R2_ACCESS_KEY_SECRET"`
	R2Bucket    string `env:"R2_BUCKET_NAME"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Dir        string `env:"LOG_DIR"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("no .env file found, reading environment variables directly")
		} else {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the archive backend has what it needs.
func (c Config) Validate() error {
	a := c.Archive
	switch a.Backend {
	case ArchiveNone, ArchiveSQLite:
	case ArchivePostgres:
		if a.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres archive")
		}
	case ArchiveR2:
		if a.R2AccountID == "" || a.R2AccessKey == "" || a.R2Secret == "" || a.R2Bucket == "" {
			return errors.New("missing R2 environment variables")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q", a.Backend)
	}
	if c.SendBuffer <= 0 {
		return errors.New("SEND_BUFFER must be positive")
	}
	return nil
}
