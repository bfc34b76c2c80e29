package app

import (
	"io"
	"os"

	"devstack/internal/config"
	"devstack/pkg/logging"
)

// LogLevelEnv names the environment variable that sets the log level when
// --debug is not given.
const LogLevelEnv = "DEVSTACK_LOG_LEVEL"

// For mocking in tests
var osGetenv = os.Getenv

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// ConfigDir replaces the layered lookup with a single directory holding config.yaml
	ConfigDir string

	// LogOutput receives devstack's own log lines; stdout is kept for summaries
	LogOutput io.Writer

	// Loaded devstack configuration
	DevstackConfig *config.DevstackConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configDir string) *Config {
	return &Config{
		Debug:     debug,
		ConfigDir: configDir,
		LogOutput: os.Stderr,
	}
}

// LogLevel returns the level devstack logs at. --debug wins over
// DEVSTACK_LOG_LEVEL; an unknown level name falls back to info and is reported
// through ok.
func LogLevel(debug bool) (level logging.LogLevel, ok bool) {
	if debug {
		return logging.LevelDebug, true
	}
	return logging.ParseLevel(osGetenv(LogLevelEnv))
}
