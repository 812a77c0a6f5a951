package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/javi11/romdeploy/internal/config"
)

type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

type Config struct {
	Level       slog.Leveler
	ReplaceAttr ReplaceAttrFunc
	Hooks       []Hook
	AddSource   bool
	// Writer receives console output. Defaults to stderr so prompts on stdout stay readable.
	Writer io.Writer
	// LogPath enables a rotated log file next to the console output.
	LogPath    string
	MaxSize    int
	MaxAge     int
	MaxBackups int
	Compress   bool
}

var defaultConfig = Config{
	Level:  defaultLevel(),
	Writer: os.Stderr,
}

func mergeConfig(config ...Config) Config {
	if len(config) == 0 {
		return defaultConfig
	}

	cfg := config[0]

	if cfg.Level == nil {
		cfg.Level = defaultConfig.Level
	}

	if cfg.Writer == nil {
		cfg.Writer = defaultConfig.Writer
	}

	return cfg
}

func defaultLevel() slog.Leveler {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return ParseLevel(v)
	}

	return slog.LevelInfo
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogRotation configures slog with log rotation using lumberjack
// If logConfig.File is empty, it logs to console only
// If logConfig.File is configured, it logs to both console and file
// A non-empty levelOverride (the --log-level flag) wins over logConfig.Level.
func SetupLogRotation(logConfig config.LogConfig, levelOverride string) (*slog.Logger, *DynamicLeveler) {
	level := logConfig.Level
	if levelOverride != "" {
		level = levelOverride
	}
	if level == "" {
		level = "info"
	}

	leveler := NewDynamicLeveler(ParseLevel(level))

	handler := NewHandler(Config{
		Level:      leveler,
		LogPath:    logConfig.File,
		MaxSize:    logConfig.MaxSize,
		MaxAge:     logConfig.MaxAge,
		MaxBackups: logConfig.MaxBackups,
		Compress:   logConfig.Compress,
	})

	return slog.New(handler), leveler
}
