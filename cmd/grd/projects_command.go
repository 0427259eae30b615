package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"grd/internal/fileutil"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List registered projects and their disciplines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Projects) == 0 {
				fmt.Fprintln(out, "No projects registered; add [[projects]] entries to the configuration")
				return nil
			}
			var rows [][]string
			for _, p := range cfg.Projects {
				for _, d := range p.Disciplines {
					dir := filepath.Join(p.Root, d)
					rows = append(rows, []string{p.Name, d, dir, yesNo(fileutil.Exists(dir))})
				}
				if len(p.Disciplines) == 0 {
					rows = append(rows, []string{p.Name, "-", p.Root, yesNo(fileutil.Exists(p.Root))})
				}
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Project", "Discipline", "Directory", "Exists"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignCenter},
				"",
			))
			return nil
		},
	}
}
