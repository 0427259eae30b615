package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"grd/internal/config"
	"grd/internal/delivery"
	"grd/internal/folders"
	"grd/internal/history"
	"grd/internal/logging"
)

type commandContext struct {
	configFlag     *string
	projectFlag    *string
	disciplineFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, projectFlag, disciplineFlag *string) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		projectFlag:    projectFlag,
		disciplineFlag: disciplineFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// withSession runs fn with a delivery session journaling into the history
// database. An unavailable journal only costs the history entry.
func (c *commandContext) withSession(fn func(*delivery.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.ensureLogger()

	journal, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_unavailable",
			logging.String("path", cfg.HistoryPath()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in grd history"),
		)
		return fn(delivery.NewSession(cfg, logger))
	}
	defer journal.Close()
	return fn(delivery.NewSession(cfg, logger, delivery.WithJournal(journal)))
}

// resolveDir picks the discipline directory of a command: an explicit
// argument, then the --project/--discipline registry lookup, then the
// working directory.
func (c *commandContext) resolveDir(args []string) (string, error) {
	dir, err := c.lookupDir(args)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("delivery directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("delivery directory %s is not a directory", dir)
	}
	return dir, nil
}

func (c *commandContext) lookupDir(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return config.ExpandPath(strings.TrimSpace(args[0]))
	}
	project := trimmedFlag(c.projectFlag)
	discipline := trimmedFlag(c.disciplineFlag)
	if project == "" && discipline == "" {
		return os.Getwd()
	}
	if project == "" || discipline == "" {
		return "", errors.New("--project and --discipline must be used together")
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if _, ok := cfg.LookupProject(project); !ok {
		return "", fmt.Errorf("project %q not found in the registry", project)
	}
	dir, ok := cfg.DisciplineDir(project, discipline)
	if !ok {
		return "", fmt.Errorf("discipline %q not found in project %q", discipline, project)
	}
	return dir, nil
}

func trimmedFlag(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func parseTypeArg(value string) (folders.Type, error) {
	t, err := folders.ParseType(value)
	if err != nil {
		return "", fmt.Errorf("delivery type %q: expected ap or pe", value)
	}
	return t, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
