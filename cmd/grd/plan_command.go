package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"grd/internal/delivery"
	"grd/internal/ledger"
	"grd/internal/scan"
)

type planFileJSON struct {
	Name     string `json:"name"`
	Revision string `json:"revision"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
	Status   string `json:"status"`
}

type planJSON struct {
	Directory string         `json:"directory"`
	Snapshot  string         `json:"snapshot"`
	First     bool           `json:"first_delivery"`
	Delivered int            `json:"official_deliveries"`
	Files     []planFileJSON `json:"files"`
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan [dir]",
		Short: "Preview what the next delivery would contain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.resolveDir(args)
			if err != nil {
				return err
			}
			return ctx.withSession(func(session *delivery.Session) error {
				plan, err := session.Plan(cmd.Context(), dir)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, planToJSON(plan))
				}
				return printPlan(cmd, plan)
			})
		},
	}
	addJSONFlag(cmd, &asJSON)
	return cmd
}

const statusObsolete = "obsolete"

// classifyPlan labels every scanned file.
func classifyPlan(plan delivery.Plan) map[string]string {
	labels := make(map[string]string, len(plan.Files))
	for _, r := range plan.Files {
		labels[r.Path] = ledger.StatusUnchanged.String()
	}
	mark := func(records []scan.FileRecord, label string) {
		for _, r := range records {
			labels[r.Path] = label
		}
	}
	mark(plan.Obsolete, statusObsolete)
	mark(plan.Changes.New, ledger.StatusNew.String())
	mark(plan.Changes.Revised, ledger.StatusRevised.String())
	mark(plan.Changes.Changed, ledger.StatusChanged.String())
	return labels
}

func planToJSON(plan delivery.Plan) planJSON {
	labels := classifyPlan(plan)
	out := planJSON{
		Directory: plan.Dir,
		Snapshot:  plan.Load.Status.String(),
		First:     plan.First,
		Delivered: plan.Previous.OfficialDeliveries,
		Files:     make([]planFileJSON, 0, len(plan.Files)),
	}
	for _, r := range plan.Files {
		out.Files = append(out.Files, planFileJSON{
			Name:     r.Name,
			Revision: r.Revision,
			Size:     r.Size,
			Modified: r.ModTime.Format("2006-01-02T15:04:05"),
			Status:   labels[r.Path],
		})
	}
	return out
}

func printPlan(cmd *cobra.Command, plan delivery.Plan) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	labels := classifyPlan(plan)

	fmt.Fprintf(out, "Directory: %s\n", plan.Dir)
	if plan.First {
		fmt.Fprintf(out, "Snapshot: %s (first delivery)\n", plan.Load.Status)
	} else {
		fmt.Fprintf(out, "Snapshot: %s, %d official deliveries\n", plan.Load.Status, plan.Previous.OfficialDeliveries)
	}
	if len(plan.Files) == 0 {
		fmt.Fprintln(out, "No documents found")
		return nil
	}

	rows := make([][]string, 0, len(plan.Files))
	for _, r := range plan.Files {
		rows = append(rows, []string{
			r.Name,
			revisionLabel(r.Revision),
			humanSize(r.Size),
			r.ModTime.Format("2006-01-02 15:04"),
			colorStatus(labels[r.Path], colorize),
		})
	}
	caption := fmt.Sprintf("%d new, %d revised, %d changed, %d obsolete",
		len(plan.Changes.New), len(plan.Changes.Revised), len(plan.Changes.Changed), len(plan.Obsolete))
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Rev", "Size", "Modified", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignCenter, alignRight, alignLeft, alignLeft},
		caption,
	))
	if !plan.HasChanges() {
		fmt.Fprintln(out, "Nothing to deliver")
	}
	return nil
}

func colorStatus(label string, colorize bool) string {
	for _, s := range []ledger.Status{ledger.StatusNew, ledger.StatusRevised, ledger.StatusChanged} {
		if label == s.String() {
			return changeLabel(s, colorize)
		}
	}
	if colorize && label == statusObsolete {
		return ansiBlue + label + ansiReset
	}
	return label
}

func revisionLabel(rev string) string {
	if strings.TrimSpace(rev) == "" {
		return "-"
	}
	return rev
}
