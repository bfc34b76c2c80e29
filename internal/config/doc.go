// Package config provides configuration management for devstack.
//
// Configuration is loaded from YAML files and merged in a specific order, with
// later sources overriding earlier ones.
//
// # Configuration Layers
//
//  1. Default Configuration (compiled into the binary)
//     - Runtime settings published to every service (timeouts, CORS, logging)
//     - State and log directories under ./.devstack
//
//  2. User Configuration (~/.config/devstack/config.yaml)
//     - Personal overrides that apply to all projects
//
//  3. Project Configuration (./.devstack/config.yaml)
//     - The service list and repository settings shared by a team
//
// # Configuration Structure
//
//	host: localhost
//	stateDir: .devstack/run
//	logDir: .devstack/logs
//	gracePeriod: 5s
//	maxPortAttempts: 256
//
//	services:
//	  - name: "orchestrator"
//	    displayName: "Orchestrator"
//	    description: "Routes requests between agents"
//	    port: 7861
//	    workDir: "services/orchestrator"
//	    command: ["python", "main.py", "--port", "{{port}}"]
//	    configPaths: ["services/orchestrator/config.json"]
//	    env:
//	      API_KEY: "${MY_API_KEY}"
//
//	runtime:
//	  api: {timeout: 30000, retryAttempts: 3, retryDelay: 1000}
//	  cors: {allowedOrigins: ["*"]}
//
//	repository:
//	  path: "."
//	  remoteURL: "https://github.com/acme/stack.git"
//	  tokenEnv: "GITHUB_TOKEN"
//
// Services are allocated and launched in the order they are listed. An overlay
// service with the same name replaces the base definition in place.
//
// # Environment Variable Expansion
//
// File contents support ${VAR} and ${VAR:-default} expansion before parsing.
// DEVSTACK_REPO_PATH and DEVSTACK_REPO_URL override the repository settings.
package config
