// utils/logger.go
package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls level and optional rotating file output.
type LogConfig struct {
	Level string
	Dir   string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger builds the process logger and installs it as the slog default.
// With an empty Dir it writes colored output to stdout only.
func NewLogger(cfg LogConfig, fileName string) (*slog.Logger, error) {
	opts := &tint.Options{
		Level:      ParseLogLevel(cfg.Level),
		TimeFormat: time.RFC3339,
	}

	var w io.Writer = os.Stdout
	var logFile *lumberjack.Logger
	if dir := strings.TrimSpace(cfg.Dir); dir != "" {
		if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
			return nil, fmt.Errorf("invalid log config: size=%d backups=%d age_days=%d", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir failed: %w", err)
		}
		logFile = &lumberjack.Logger{
			Filename:   filepath.Join(dir, fileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		w = io.MultiWriter(os.Stdout, logFile)
		opts.NoColor = true
	}

	logger := slog.New(tint.NewHandler(w, opts))
	slog.SetDefault(logger)
	if logFile != nil {
		logger.Info("file_logging_enabled", "path", logFile.Filename)
	}
	return logger, nil
}

// ParseLogLevel maps debug|info|warn|error to a level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
