package testsupport

import (
	"path/filepath"
	"testing"

	"grd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retries are limited to a single attempt so permission failures surface
// immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Retry.Attempts = 1
	cfgVal.Retry.InitialBackoffMS = 1
	cfgVal.Retry.MaxBackoffMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithProject registers a project rooted in a temp directory, creating one
// directory per discipline.
func WithProject(name string, disciplines ...string) ConfigOption {
	return func(b *configBuilder) {
		root := filepath.Join(b.baseDir, "projects", name)
		for _, d := range disciplines {
			MkdirAll(b.t, filepath.Join(root, d))
		}
		b.cfg.Projects = append(b.cfg.Projects, config.Project{
			Name:        name,
			Root:        root,
			Disciplines: disciplines,
		})
	}
}

// BaseDir returns the temp root NewConfig placed its directories in.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
