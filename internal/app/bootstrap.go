package app

import (
	"fmt"
	"os"

	"devstack/internal/config"
	"devstack/pkg/logging"
)

// Application is the main application structure that bootstraps devstack
type Application struct {
	config   *Config
	services *Services
}

// loaders are swapped in tests.
var (
	loadLayeredConfig = config.LoadConfig
	loadConfigFromDir = config.LoadConfigFromPath
)

// NewApplication initializes logging, loads the configuration and wires the components.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel, known := LogLevel(cfg.Debug)
	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logging.InitForCLI(appLogLevel, out)
	if !known {
		logging.Warn("Bootstrap", "Unknown %s %q, logging at %s", LogLevelEnv, osGetenv(LogLevelEnv), appLogLevel)
	}

	var devCfg config.DevstackConfig
	var err error

	if cfg.ConfigDir != "" {
		devCfg, err = loadConfigFromDir(cfg.ConfigDir)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigDir)
			return nil, fmt.Errorf("failed to load devstack configuration from path %s: %w", cfg.ConfigDir, err)
		}
		logging.Debug("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigDir)
	} else {
		devCfg, err = loadLayeredConfig()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load devstack configuration: %w", err)
		}
		logging.Debug("Bootstrap", "Loaded configuration using layered approach")
	}

	cfg.DevstackConfig = &devCfg

	return &Application{
		config:   cfg,
		services: InitializeServices(devCfg),
	}, nil
}

// Config returns the loaded devstack configuration.
func (a *Application) Config() config.DevstackConfig {
	return *a.config.DevstackConfig
}

// Services returns the wired components.
func (a *Application) Services() *Services {
	return a.services
}
