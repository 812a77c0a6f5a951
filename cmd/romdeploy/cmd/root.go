package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/javi11/romdeploy/internal/config"
	apperrors "github.com/javi11/romdeploy/internal/errors"
	"github.com/javi11/romdeploy/internal/slogutil"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1
	exitPartial = 2
	exitAborted = 3
)

// errPartial marks a run that left failed or remaining archives behind.
var errPartial = errors.New("extraction incomplete")

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "romdeploy",
	Short:         "Deploy emulator build archives onto USB storage",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/romdeploy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		return nil, err
	}

	logger, _ := slogutil.SetupLogRotation(cfg.Log, logLevel)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		"config_file", configFile,
		"log_file", cfg.Log.File,
		"log_level", cfg.Log.Level)

	return cfg, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartial):
		return exitPartial
	case apperrors.IsUserAbort(err), errors.Is(err, context.Canceled):
		return exitAborted
	default:
		return exitError
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
