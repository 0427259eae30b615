package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateProjects()
}

func (c *Config) validateDelivery() error {
	if c.Delivery.APPrefix == c.Delivery.PEPrefix {
		return errors.New("delivery.ap_prefix and delivery.pe_prefix must differ")
	}
	if strings.Count(c.Delivery.LedgerFilePattern, "%s") != 1 {
		return fmt.Errorf("delivery.ledger_file_pattern must contain exactly one %%s, got %q", c.Delivery.LedgerFilePattern)
	}
	for key, value := range map[string]string{
		"delivery.snapshot_file": c.Delivery.SnapshotFile,
		"delivery.manifest_file": c.Delivery.ManifestFile,
		"delivery.lock_file":     c.Delivery.LockFile,
	} {
		if strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("%s must be a plain file name, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxBackoffMS < c.Retry.InitialBackoffMS {
		return errors.New("retry.max_backoff_ms must be greater than or equal to retry.initial_backoff_ms")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateProjects() error {
	seen := make(map[string]struct{}, len(c.Projects))
	for i, p := range c.Projects {
		if p.Name == "" {
			return fmt.Errorf("projects[%d].name must be set", i)
		}
		if p.Root == "" {
			return fmt.Errorf("projects[%d].root must be set", i)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("projects: duplicate project name %q", p.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}
