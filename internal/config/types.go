package config

import (
	"time"
)

// DevstackConfig is the top-level configuration structure for devstack.
type DevstackConfig struct {
	Host            string              `yaml:"host,omitempty"`            // Host used for probing and service URLs
	StateDir        string              `yaml:"stateDir,omitempty"`        // Directory holding the lifecycle registry
	LogDir          string              `yaml:"logDir,omitempty"`          // Directory holding per-service output logs
	GracePeriod     time.Duration       `yaml:"gracePeriod,omitempty"`     // How long stop waits after SIGTERM before SIGKILL
	MaxPortAttempts int                 `yaml:"maxPortAttempts,omitempty"` // Upper bound on ports probed per service
	Services        []ServiceDefinition `yaml:"services,omitempty"`
	Runtime         RuntimeSettings     `yaml:"runtime,omitempty"`
	Repository      RepositoryConfig    `yaml:"repository,omitempty"`
}

// ServiceDefinition is the static description of one managed service.
type ServiceDefinition struct {
	Name        string            `yaml:"name"`                  // Unique identifier, e.g. "orchestrator"
	DisplayName string            `yaml:"displayName,omitempty"` // Human readable name published in the runtime document
	Description string            `yaml:"description,omitempty"`
	Port        int               `yaml:"port"`                  // Preferred port
	WorkDir     string            `yaml:"workDir"`               // Working directory the command runs in
	Command     []string          `yaml:"command"`               // Command and arguments; "{{port}}" is replaced by the resolved port
	Env         map[string]string `yaml:"env,omitempty"`
	ConfigPaths []string          `yaml:"configPaths,omitempty"` // Where the runtime document is published for this service
}

// RuntimeSettings are the cross-cutting settings published to every service.
type RuntimeSettings struct {
	Websocket WebsocketSettings `yaml:"websocket,omitempty"`
	API       APISettings       `yaml:"api,omitempty"`
	CORS      CORSSettings      `yaml:"cors,omitempty"`
	Logging   LoggingSettings   `yaml:"logging,omitempty"`
}

// WebsocketSettings values are milliseconds except MaxReconnectAttempts.
type WebsocketSettings struct {
	PingInterval         int `yaml:"pingInterval,omitempty"`
	ReconnectInterval    int `yaml:"reconnectInterval,omitempty"`
	MaxReconnectAttempts int `yaml:"maxReconnectAttempts,omitempty"`
}

// APISettings values are milliseconds except RetryAttempts.
type APISettings struct {
	Timeout       int `yaml:"timeout,omitempty"`
	RetryAttempts int `yaml:"retryAttempts,omitempty"`
	RetryDelay    int `yaml:"retryDelay,omitempty"`
}

type CORSSettings struct {
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
	AllowedMethods []string `yaml:"allowedMethods,omitempty"`
	AllowedHeaders []string `yaml:"allowedHeaders,omitempty"`
}

type LoggingSettings struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// RepositoryConfig points the synchronizer at a working copy and its remote.
type RepositoryConfig struct {
	Path       string `yaml:"path,omitempty"`       // Local working copy
	RemoteURL  string `yaml:"remoteURL,omitempty"`  // Remote address without credentials
	RemoteName string `yaml:"remoteName,omitempty"` // Remote to configure, default "origin"
	TokenEnv   string `yaml:"tokenEnv,omitempty"`   // Environment variable holding the credential
}

// ServiceNames returns the configured service names in order.
func (c DevstackConfig) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for _, svc := range c.Services {
		names = append(names, svc.Name)
	}
	return names
}

// Service returns the definition with the given name.
func (c DevstackConfig) Service(name string) (ServiceDefinition, bool) {
	for _, svc := range c.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return ServiceDefinition{}, false
}
