package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"grd/internal/config"
	"grd/internal/fileutil"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Create and check the grd configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configTarget(trimmedFlag(&targetPath))
			if err != nil {
				return err
			}
			if fileutil.Exists(target) && !overwrite {
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Add one [[projects]] entry per project to use --project and --discipline.")
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Where to write the configuration (default ~/.config/grd/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func configTarget(path string) (string, error) {
	if path == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(path)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and check the project registry against disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(trimmedFlag(ctx.configFlag))
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = "built-in defaults (no file at " + path + ")"
			}
			fmt.Fprintf(out, "Config: %s\n", source)
			fmt.Fprintf(out, "State directory: %s\n", cfg.Paths.StateDir)
			fmt.Fprintf(out, "Log file: %s\n", cfg.LogPath())
			fmt.Fprintf(out, "Projects registered: %d\n", len(cfg.Projects))

			missing := missingDirectories(out, cfg)
			if missing > 0 {
				return errors.New("configuration loaded but some registered directories are missing")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// missingDirectories prints every registered project root or discipline
// directory that does not exist and returns how many there were.
func missingDirectories(out io.Writer, cfg *config.Config) int {
	missing := 0
	for _, p := range cfg.Projects {
		dirs := []string{p.Root}
		for _, d := range p.Disciplines {
			dirs = append(dirs, filepath.Join(p.Root, d))
		}
		for _, dir := range dirs {
			if !fileutil.Exists(dir) {
				fmt.Fprintf(out, "  missing: %s (project %s)\n", dir, p.Name)
				missing++
			}
		}
	}
	return missing
}
