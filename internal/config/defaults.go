package config

import "time"

const (
	DefaultHost            = "localhost"
	DefaultStateDir        = ".devstack/run"
	DefaultLogDir          = ".devstack/logs"
	DefaultGracePeriod     = 5 * time.Second
	DefaultMaxPortAttempts = 256
	DefaultRemoteName      = "origin"
	DefaultTokenEnv        = "GITHUB_TOKEN"
)

// GetDefaultConfig returns minimal default configuration.
// By default no services are defined; projects declare them in .devstack/config.yaml.
func GetDefaultConfig() DevstackConfig {
	return DevstackConfig{
		Host:            DefaultHost,
		StateDir:        DefaultStateDir,
		LogDir:          DefaultLogDir,
		GracePeriod:     DefaultGracePeriod,
		MaxPortAttempts: DefaultMaxPortAttempts,
		Services:        []ServiceDefinition{},
		Runtime: RuntimeSettings{
			Websocket: WebsocketSettings{
				PingInterval:         30000,
				ReconnectInterval:    5000,
				MaxReconnectAttempts: 10,
			},
			API: APISettings{
				Timeout:       30000,
				RetryAttempts: 3,
				RetryDelay:    1000,
			},
			CORS: CORSSettings{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"*"},
			},
			Logging: LoggingSettings{
				Level:  "INFO",
				Format: "%(asctime)s - %(name)s - %(levelname)s - %(message)s",
				File:   "logs/app.log",
			},
		},
		Repository: RepositoryConfig{
			RemoteName: DefaultRemoteName,
			TokenEnv:   DefaultTokenEnv,
		},
	}
}
