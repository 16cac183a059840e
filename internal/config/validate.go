package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.gin_mode must be debug, release or test (got %q)", c.Server.GinMode)
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverDynamoDB:
		if c.AWS.Region == "" {
			return fmt.Errorf("aws.region is required for the dynamodb store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q (got %q)", DriverDynamoDB, DriverMemory, c.Store.Driver)
	}

	if secret := strings.TrimSpace(c.Auth.JWTSecret); secret != "" && len(secret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(secret))
	}

	if err := c.Sweep.validate(); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	return nil
}

func (s *SweepConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	if strings.TrimSpace(s.Spec) == "" {
		return fmt.Errorf("spec is required when the sweeper is enabled")
	}
	if s.Threshold <= 0 {
		return fmt.Errorf("threshold must be > 0 (got %v)", s.Threshold)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", s.Timeout)
	}
	if s.LockTTL < s.Timeout {
		return fmt.Errorf("lock_ttl (%v) must not be shorter than timeout (%v)", s.LockTTL, s.Timeout)
	}
	return nil
}
