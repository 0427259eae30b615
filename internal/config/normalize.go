package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDelivery()
	c.normalizeLedger()
	c.normalizeRetry()
	c.normalizeLogging()
	return c.normalizeProjects()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = ExpandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDelivery() {
	d := &c.Delivery
	d.DeliveriesDir = fallback(d.DeliveriesDir, defaultDeliveriesDir)
	// Prefixes end in "-" by convention, so only the outer whitespace is trimmed.
	d.APPrefix = fallback(d.APPrefix, defaultAPPrefix)
	d.PEPrefix = fallback(d.PEPrefix, defaultPEPrefix)
	d.ObsoleteSuffix = fallback(d.ObsoleteSuffix, defaultObsoleteSuffix)
	d.SnapshotFile = fallback(d.SnapshotFile, defaultSnapshotFile)
	d.LedgerFilePattern = fallback(d.LedgerFilePattern, defaultLedgerFilePattern)
	d.ManifestFile = fallback(d.ManifestFile, defaultManifestFile)
	d.LockFile = fallback(d.LockFile, defaultLockFile)
}

func (c *Config) normalizeLedger() {
	c.Ledger.Sheet = fallback(c.Ledger.Sheet, defaultLedgerSheet)
	c.Ledger.Title = fallback(c.Ledger.Title, defaultLedgerTitle)
	c.Ledger.Description = strings.TrimSpace(c.Ledger.Description)
}

func (c *Config) normalizeRetry() {
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = defaultRetryAttempts
	}
	if c.Retry.InitialBackoffMS <= 0 {
		c.Retry.InitialBackoffMS = defaultRetryInitialMS
	}
	if c.Retry.MaxBackoffMS <= 0 {
		c.Retry.MaxBackoffMS = defaultRetryMaxMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeProjects() error {
	for i := range c.Projects {
		p := &c.Projects[i]
		p.Name = strings.TrimSpace(p.Name)
		root, err := ExpandPath(strings.TrimSpace(p.Root))
		if err != nil {
			return fmt.Errorf("projects[%d].root: %w", i, err)
		}
		p.Root = root
		disciplines := p.Disciplines[:0]
		for _, d := range p.Disciplines {
			if d = strings.TrimSpace(d); d != "" {
				disciplines = append(disciplines, d)
			}
		}
		p.Disciplines = disciplines
	}
	return nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
