package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"grd/internal/delivery"
	"grd/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	var (
		columns int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "ledger <ap|pe> [dir]",
		Short: "Show the delivery ledger of a directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTypeArg(args[0])
			if err != nil {
				return err
			}
			dir, err := ctx.resolveDir(args[1:])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withSession(func(session *delivery.Session) error {
				view, err := ledger.Read(session.Layout().LedgerPath(dir, t), cfg.Ledger.Sheet)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				printLedger(cmd, view, columns)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&columns, "columns", 3, "Number of most recent deliveries to show (0 for all)")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

func printLedger(cmd *cobra.Command, view ledger.View, columns int) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	headers := view.Headers
	if columns > 0 && len(headers) > columns {
		headers = headers[:columns]
	}

	tableHeaders := append([]string{"Document", "Ext"}, headers...)
	aligns := []columnAlignment{alignLeft, alignLeft}
	rows := make([][]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		line := []string{row.Document, row.Extension}
		for i := range headers {
			if i >= len(row.Cells) || row.Cells[i].Value == "" {
				line = append(line, "")
				continue
			}
			cell := row.Cells[i]
			line = append(line, fmt.Sprintf("%s (%s)", cell.Value, changeLabel(cell.Status, colorize)))
		}
		rows = append(rows, line)
	}
	caption := fmt.Sprintf("%d lineages, %d deliveries, issued %s", len(view.Rows), len(view.Headers), view.Issued)
	fmt.Fprintln(out, renderTable(tableHeaders, rows, aligns, caption))
}
