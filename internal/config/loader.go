package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var osGetenv = os.Getenv

const (
	userConfigDir    = ".config/devstack"
	projectConfigDir = ".devstack"
	configFileName   = "config.yaml"

	envRepoPath = "DEVSTACK_REPO_PATH"
	envRepoURL  = "DEVSTACK_REPO_URL"
)

// LoadConfig loads the devstack configuration by layering default, user, and project settings.
// Relative paths are resolved against the current working directory.
func LoadConfig() (DevstackConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		config, err = overlayFile(config, userConfigPath)
		if err != nil {
			return DevstackConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		return DevstackConfig{}, fmt.Errorf("could not determine project config path: %w", err)
	}
	config, err = overlayFile(config, projectConfigPath)
	if err != nil {
		return DevstackConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	projectRoot, err := osGetwd()
	if err != nil {
		return DevstackConfig{}, fmt.Errorf("could not determine working directory: %w", err)
	}

	config = applyEnvOverrides(config)
	config.ResolvePaths(projectRoot)
	return config, config.Validate()
}

// LoadConfigFromPath loads defaults plus the config.yaml found in configDir, skipping
// the user layer. The project root is the parent of configDir.
func LoadConfigFromPath(configDir string) (DevstackConfig, error) {
	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return DevstackConfig{}, fmt.Errorf("invalid config directory %s: %w", configDir, err)
	}
	path := filepath.Join(absDir, configFileName)
	if _, err := os.Stat(path); err != nil {
		return DevstackConfig{}, fmt.Errorf("config file %s: %w", path, err)
	}

	config, err := overlayFile(GetDefaultConfig(), path)
	if err != nil {
		return DevstackConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	config = applyEnvOverrides(config)
	config.ResolvePaths(filepath.Dir(absDir))
	return config, config.Validate()
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// overlayFile merges the file at path into base. A missing file is not an error.
func overlayFile(base DevstackConfig, path string) (DevstackConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return DevstackConfig{}, err
	}
	return mergeConfigs(base, overlay), nil
}

// loadConfigFromFile loads a DevstackConfig from a YAML file after env expansion.
func loadConfigFromFile(filePath string) (DevstackConfig, error) {
	var config DevstackConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return DevstackConfig{}, err
	}
	expanded := os.Expand(string(data), expandVar)
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return DevstackConfig{}, err
	}
	return config, nil
}

// expandVar resolves NAME and NAME:-default references.
func expandVar(ref string) string {
	name, fallback, hasDefault := strings.Cut(ref, ":-")
	if v := osGetenv(name); v != "" {
		return v
	}
	if hasDefault {
		return fallback
	}
	return ""
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay DevstackConfig) DevstackConfig {
	merged := base

	if overlay.Host != "" {
		merged.Host = overlay.Host
	}
	if overlay.StateDir != "" {
		merged.StateDir = overlay.StateDir
	}
	if overlay.LogDir != "" {
		merged.LogDir = overlay.LogDir
	}
	if overlay.GracePeriod != 0 {
		merged.GracePeriod = overlay.GracePeriod
	}
	if overlay.MaxPortAttempts != 0 {
		merged.MaxPortAttempts = overlay.MaxPortAttempts
	}

	// Services keep base order; same-name overlays replace in place, new ones append.
	services := make([]ServiceDefinition, 0, len(base.Services)+len(overlay.Services))
	services = append(services, base.Services...)
	for _, srv := range overlay.Services {
		replaced := false
		for i := range services {
			if services[i].Name == srv.Name {
				services[i] = srv
				replaced = true
				break
			}
		}
		if !replaced {
			services = append(services, srv)
		}
	}
	merged.Services = services

	merged.Runtime = mergeRuntime(base.Runtime, overlay.Runtime)

	if overlay.Repository.Path != "" {
		merged.Repository.Path = overlay.Repository.Path
	}
	if overlay.Repository.RemoteURL != "" {
		merged.Repository.RemoteURL = overlay.Repository.RemoteURL
	}
	if overlay.Repository.RemoteName != "" {
		merged.Repository.RemoteName = overlay.Repository.RemoteName
	}
	if overlay.Repository.TokenEnv != "" {
		merged.Repository.TokenEnv = overlay.Repository.TokenEnv
	}

	return merged
}

func mergeRuntime(base, overlay RuntimeSettings) RuntimeSettings {
	merged := base

	mergeInt(&merged.Websocket.PingInterval, overlay.Websocket.PingInterval)
	mergeInt(&merged.Websocket.ReconnectInterval, overlay.Websocket.ReconnectInterval)
	mergeInt(&merged.Websocket.MaxReconnectAttempts, overlay.Websocket.MaxReconnectAttempts)

	mergeInt(&merged.API.Timeout, overlay.API.Timeout)
	mergeInt(&merged.API.RetryAttempts, overlay.API.RetryAttempts)
	mergeInt(&merged.API.RetryDelay, overlay.API.RetryDelay)

	if overlay.CORS.AllowedOrigins != nil {
		merged.CORS.AllowedOrigins = overlay.CORS.AllowedOrigins
	}
	if overlay.CORS.AllowedMethods != nil {
		merged.CORS.AllowedMethods = overlay.CORS.AllowedMethods
	}
	if overlay.CORS.AllowedHeaders != nil {
		merged.CORS.AllowedHeaders = overlay.CORS.AllowedHeaders
	}

	if overlay.Logging.Level != "" {
		merged.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		merged.Logging.Format = overlay.Logging.Format
	}
	if overlay.Logging.File != "" {
		merged.Logging.File = overlay.Logging.File
	}
	return merged
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyEnvOverrides(config DevstackConfig) DevstackConfig {
	if v := osGetenv(envRepoPath); v != "" {
		config.Repository.Path = v
	}
	if v := osGetenv(envRepoURL); v != "" {
		config.Repository.RemoteURL = v
	}
	return config
}

// ResolvePaths makes every relative path in the configuration absolute against projectRoot.
func (c *DevstackConfig) ResolvePaths(projectRoot string) {
	c.StateDir = absAgainst(projectRoot, c.StateDir)
	c.LogDir = absAgainst(projectRoot, c.LogDir)
	if c.Repository.Path != "" {
		c.Repository.Path = absAgainst(projectRoot, c.Repository.Path)
	}
	for i := range c.Services {
		svc := &c.Services[i]
		if !filepath.IsAbs(svc.WorkDir) {
			svc.WorkDir = filepath.Join(projectRoot, svc.WorkDir)
		}
		for j, p := range svc.ConfigPaths {
			svc.ConfigPaths[j] = absAgainst(projectRoot, p)
		}
	}
}

func absAgainst(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
