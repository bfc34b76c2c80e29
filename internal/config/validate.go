package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfigurationMissing marks a required setting that is absent. It is fatal and
// reported before any side effect takes place.
var ErrConfigurationMissing = errors.New("required configuration missing")

// Validate checks the service list for problems that would break allocation or launch.
func (c DevstackConfig) Validate() error {
	if c.MaxPortAttempts <= 0 {
		return fmt.Errorf("maxPortAttempts must be positive, got %d", c.MaxPortAttempts)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("gracePeriod must not be negative, got %s", c.GracePeriod)
	}

	seen := make(map[string]bool, len(c.Services))
	var errs []error
	for i, svc := range c.Services {
		switch {
		case strings.TrimSpace(svc.Name) == "":
			errs = append(errs, fmt.Errorf("service %d: name is required", i))
			continue
		case seen[svc.Name]:
			errs = append(errs, fmt.Errorf("service %s: duplicate name", svc.Name))
		}
		seen[svc.Name] = true

		if svc.Port <= 0 || svc.Port > 65535 {
			errs = append(errs, fmt.Errorf("service %s: port %d out of range", svc.Name, svc.Port))
		}
		if len(svc.Command) == 0 {
			errs = append(errs, fmt.Errorf("service %s: command is required", svc.Name))
		}
		if strings.ContainsAny(svc.Name, `/\`) {
			errs = append(errs, fmt.Errorf("service %s: name must not contain path separators", svc.Name))
		}
		if strings.HasPrefix(svc.Name, ".") {
			errs = append(errs, fmt.Errorf("service %s: name must not start with a dot", svc.Name))
		}
	}
	return errors.Join(errs...)
}

// ValidateRepository ensures every setting the synchronizer needs is present.
// Missing values wrap ErrConfigurationMissing.
func (c DevstackConfig) ValidateRepository() error {
	var missing []string
	if strings.TrimSpace(c.Repository.Path) == "" {
		missing = append(missing, "repository path ("+envRepoPath+")")
	}
	if strings.TrimSpace(c.Repository.RemoteURL) == "" {
		missing = append(missing, "repository remote URL ("+envRepoURL+")")
	}
	if c.Credential() == "" {
		missing = append(missing, "repository credential ("+c.tokenEnv()+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Credential returns the repository credential from the configured environment variable.
func (c DevstackConfig) Credential() string {
	return strings.TrimSpace(osGetenv(c.tokenEnv()))
}

func (c DevstackConfig) tokenEnv() string {
	if c.Repository.TokenEnv != "" {
		return c.Repository.TokenEnv
	}
	return DefaultTokenEnv
}
