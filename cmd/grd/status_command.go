package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"grd/internal/delivery"
	"grd/internal/folders"
	"grd/internal/preflight"
	"grd/internal/snapshot"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [dir]",
		Short: "Show snapshot, ledgers and delivery folders of a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.resolveDir(args)
			if err != nil {
				return err
			}
			return ctx.withSession(func(session *delivery.Session) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				layout := session.Layout()

				lines := renderSectionHeader("Directory", colorize)
				lines = append(lines, renderStatusLine("Path", statusInfo, dir, colorize))
				lines = append(lines, snapshotLine(snapshot.Load(layout.SnapshotPath(dir)), colorize))

				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Deliveries", colorize)...)
				base := layout.BaseDir(dir)
				for _, t := range folders.Types {
					lines = append(lines, ledgerLine(layout, dir, t, colorize))
					lines = append(lines, folderLine(session.Folders(), base, t, colorize))
				}
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Preflight", colorize)...)
				for _, r := range preflight.RunAll(cmd.Context(), cfg, layout, dir) {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return nil
			})
		},
	}
}

func snapshotLine(res snapshot.LoadResult, colorize bool) string {
	switch res.Status {
	case snapshot.StatusOK:
		msg := fmt.Sprintf("%d lineages, %d official deliveries, last run %s",
			len(res.State.Entries), res.State.OfficialDeliveries, res.State.LastRun)
		return renderStatusLine("Snapshot", statusOK, msg, colorize)
	case snapshot.StatusCorrupt:
		return renderStatusLine("Snapshot", statusError, fmt.Sprintf("unreadable: %v", res.Err), colorize)
	default:
		return renderStatusLine("Snapshot", statusWarn, "absent (next delivery is the first)", colorize)
	}
}

func ledgerLine(layout folders.Layout, dir string, t folders.Type, colorize bool) string {
	label := fmt.Sprintf("Ledger %s", t)
	path := layout.LedgerPath(dir, t)
	info, err := os.Stat(path)
	if err != nil {
		return renderStatusLine(label, statusInfo, "not created", colorize)
	}
	return renderStatusLine(label, statusOK, fmt.Sprintf("%s (%s)", layout.LedgerFile(t), humanSize(info.Size())), colorize)
}

func folderLine(manager *folders.Manager, base string, t folders.Type, colorize bool) string {
	label := fmt.Sprintf("Folders %s", t)
	all, err := manager.List(base, t)
	if err != nil {
		return renderStatusLine(label, statusError, err.Error(), colorize)
	}
	if len(all) == 0 {
		return renderStatusLine(label, statusInfo, "none", colorize)
	}
	active, err := manager.Active(base, t)
	if err != nil {
		return renderStatusLine(label, statusError, err.Error(), colorize)
	}
	switch len(active) {
	case 0:
		return renderStatusLine(label, statusWarn, fmt.Sprintf("%d rotated, no active folder", len(all)), colorize)
	case 1:
		return renderStatusLine(label, statusOK, fmt.Sprintf("active %s, %d rotated", active[0].Name, len(all)-1), colorize)
	default:
		return renderStatusLine(label, statusWarn, fmt.Sprintf("%d active folders; the next delivery rotates all of them", len(active)), colorize)
	}
}
