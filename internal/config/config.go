package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories owned by grd itself.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Delivery contains the on-disk naming conventions of a delivery directory.
type Delivery struct {
	DeliveriesDir     string `toml:"deliveries_dir"`
	APPrefix          string `toml:"ap_prefix"`
	PEPrefix          string `toml:"pe_prefix"`
	ObsoleteSuffix    string `toml:"obsolete_suffix"`
	SnapshotFile      string `toml:"snapshot_file"`
	LedgerFilePattern string `toml:"ledger_file_pattern"`
	ManifestFile      string `toml:"manifest_file"`
	LockFile          string `toml:"lock_file"`
}

// Ledger contains the fixed header text written into new ledgers.
type Ledger struct {
	Sheet       string `toml:"sheet"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// Retry controls how file moves react to permission errors.
type Retry struct {
	Attempts         int `toml:"attempts"`
	InitialBackoffMS int `toml:"initial_backoff_ms"`
	MaxBackoffMS     int `toml:"max_backoff_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Project is one entry of the project registry.
type Project struct {
	Name        string   `toml:"name"`
	Root        string   `toml:"root"`
	Disciplines []string `toml:"disciplines"`
}

// Config encapsulates all configuration values for grd.
//
// Configuration sections by subsystem:
//   - Paths: log and journal directories
//   - Delivery: folder prefixes, obsolete suffix and reserved file names
//   - Ledger: spreadsheet sheet name and header text
//   - Retry: bounded retry policy for file moves
//   - Logging: log format and level
//   - Projects: registry of known projects and their disciplines
type Config struct {
	Paths    Paths     `toml:"paths"`
	Delivery Delivery  `toml:"delivery"`
	Ledger   Ledger    `toml:"ledger"`
	Retry    Retry     `toml:"retry"`
	Logging  Logging   `toml:"logging"`
	Projects []Project `toml:"projects"`
}

// DefaultConfigPath returns ~/.config/grd/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/grd/config.toml")
}

// Load reads the configuration at path, or the first existing default
// location when path is empty, over the built-in defaults. It reports the
// resolved path and whether a file was found there. Unknown keys are
// rejected so a misspelt setting does not silently fall back to its default.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: %s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath returns the explicit path when given, otherwise the
// first regular file among ~/.config/grd/config.toml and ./grd.toml. With
// nothing found the default location is reported as absent.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil:
			return expanded, !info.IsDir(), nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("grd.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, local} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories grd writes its own files into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run journal database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the log file written next to stderr output.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "grd.log")
}

// LedgerFile returns the ledger file name for the given delivery type.
func (c *Config) LedgerFile(deliveryType string) string {
	return fmt.Sprintf(c.Delivery.LedgerFilePattern, strings.ToUpper(deliveryType))
}

// RetryPolicy converts the retry section into durations.
func (c *Config) RetryPolicy() (attempts int, initial, maxBackoff time.Duration) {
	return c.Retry.Attempts,
		time.Duration(c.Retry.InitialBackoffMS) * time.Millisecond,
		time.Duration(c.Retry.MaxBackoffMS) * time.Millisecond
}

// LookupProject finds a registered project by name (case-insensitive).
// A missing or empty registry is reported as not found.
func (c *Config) LookupProject(name string) (Project, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, false
	}
	for _, p := range c.Projects {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Project{}, false
}

// DisciplineDir resolves the working directory of a discipline inside a
// registered project. The second result is false when either is unknown.
func (c *Config) DisciplineDir(project, discipline string) (string, bool) {
	p, ok := c.LookupProject(project)
	if !ok {
		return "", false
	}
	discipline = strings.TrimSpace(discipline)
	for _, d := range p.Disciplines {
		if strings.EqualFold(d, discipline) {
			return filepath.Join(p.Root, d), true
		}
	}
	return "", false
}

// ExpandPath resolves a leading ~ to the home directory and returns the
// cleaned absolute path. An empty value stays empty.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
