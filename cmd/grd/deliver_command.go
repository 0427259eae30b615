package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"grd/internal/delivery"
	"grd/internal/folders"
	"grd/internal/ledger"
	"grd/internal/preflight"
)

func newDeliverCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var force bool
	cmd := &cobra.Command{
		Use:   "deliver <ap|pe> [dir]",
		Short: "Create the next delivery folder and update the ledger",
		Long: "Copies new, revised and changed documents into the next delivery folder of the\n" +
			"given type, rotates the previous folder, archives obsolete revisions and records\n" +
			"the delivery in the ledger and snapshot.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTypeArg(args[0])
			if err != nil {
				return err
			}
			dir, err := ctx.resolveDir(args[1:])
			if err != nil {
				return err
			}
			return ctx.withSession(func(session *delivery.Session) error {
				if err := runPreflight(cmd, ctx, session, dir, force); err != nil {
					return err
				}
				result, err := session.Deliver(cmd.Context(), dir, t)
				if errors.Is(err, delivery.ErrNothingToDeliver) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to deliver: no new, revised or changed documents")
					return nil
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcomeToJSON(result.Outcome, &result.Copied))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Delivery %s %d created at %s\n", t, result.Folder.Number, result.Folder.Path)
				fmt.Fprintf(out, "  Copied: %d file(s)\n", len(result.Copied.Done))
				printReportProblems(out, "copy", result.Copied)
				printOutcome(out, result.Outcome)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Deliver even when preflight checks fail")
	addJSONFlag(cmd, &asJSON)
	return cmd
}

// runPreflight refuses the delivery when a check fails, unless forced.
func runPreflight(cmd *cobra.Command, ctx *commandContext, session *delivery.Session, dir string, force bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, session.Layout(), dir))
	if len(failed) == 0 {
		return nil
	}
	for _, r := range failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "Preflight %s: %s\n", r.Name, r.Detail)
	}
	if force {
		fmt.Fprintln(cmd.ErrOrStderr(), "Continuing despite failed preflight checks (--force)")
		return nil
	}
	return fmt.Errorf("%d preflight check(s) failed; rerun with --force to deliver anyway", len(failed))
}

type outcomeJSON struct {
	RunID              string   `json:"run_id,omitempty"`
	Type               string   `json:"type"`
	Number             int      `json:"number"`
	Folder             string   `json:"folder,omitempty"`
	Copied             []string `json:"copied,omitempty"`
	Archive            string   `json:"archive,omitempty"`
	Archived           []string `json:"archived,omitempty"`
	Failed             []string `json:"failed,omitempty"`
	Ledger             string   `json:"ledger"`
	LedgerColumn       string   `json:"ledger_column"`
	OfficialDeliveries int      `json:"official_deliveries"`
	SnapshotSaved      bool     `json:"snapshot_saved"`
}

func outcomeToJSON(o delivery.Outcome, copied *folders.Report) outcomeJSON {
	out := outcomeJSON{
		RunID:              o.RunID,
		Type:               string(o.Type),
		Number:             o.Number,
		Folder:             o.Folder,
		Archive:            o.Archive.Path,
		Archived:           o.Archived.Done,
		Ledger:             o.Ledger.Path,
		LedgerColumn:       o.Ledger.Header,
		OfficialDeliveries: o.State.OfficialDeliveries,
		SnapshotSaved:      o.SaveErr == nil,
	}
	if copied != nil {
		out.Copied = copied.Done
		for _, f := range copied.Failed {
			out.Failed = append(out.Failed, f.Error())
		}
	}
	for _, f := range o.Archived.Failed {
		out.Failed = append(out.Failed, f.Error())
	}
	return out
}

func printOutcome(out io.Writer, o delivery.Outcome) {
	if o.Archive.Path != "" {
		fmt.Fprintf(out, "  Archived: %d obsolete file(s) to %s\n", len(o.Archived.Done), o.Archive.Path)
		printReportProblems(out, "archive", o.Archived)
	}
	fmt.Fprintf(out, "  Ledger: %s (column %s, %d new, %d revised, %d changed, %d unchanged)\n",
		o.Ledger.Path, o.Ledger.Header,
		o.Ledger.Counts[ledger.StatusNew], o.Ledger.Counts[ledger.StatusRevised],
		o.Ledger.Counts[ledger.StatusChanged], o.Ledger.Counts[ledger.StatusUnchanged])
	if o.SaveErr != nil {
		fmt.Fprintf(out, "  Snapshot: not saved: %v\n", o.SaveErr)
	} else {
		fmt.Fprintf(out, "  Snapshot: %s (%d official deliveries)\n", o.StatePath, o.State.OfficialDeliveries)
	}
}

func printReportProblems(out io.Writer, action string, report folders.Report) {
	for _, path := range report.Skipped {
		fmt.Fprintf(out, "  Skipped %s (file vanished): %s\n", action, path)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  Failed %s: %v\n", action, f)
	}
}
