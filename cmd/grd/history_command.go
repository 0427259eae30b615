package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"grd/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		all    bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [dir]",
		Short: "List recent delivery runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			directory := ""
			if !all {
				if directory, err = ctx.resolveDir(args); err != nil {
					return err
				}
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), directory, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					humanize.Time(run.StartedAt),
					fmt.Sprintf("%s %d", run.Type, run.Number),
					string(run.Status),
					strconv.Itoa(run.Counts.New),
					strconv.Itoa(run.Counts.Revised),
					strconv.Itoa(run.Counts.Changed),
					strconv.Itoa(run.Counts.Archived),
					strconv.Itoa(run.Counts.Failed),
					run.Directory,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Delivery", "Status", "New", "Revised", "Changed", "Archived", "Failed", "Directory"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				"",
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&all, "all", false, "List runs of every directory")
	addJSONFlag(cmd, &asJSON)
	return cmd
}
