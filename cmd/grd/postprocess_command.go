package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"grd/internal/config"
	"grd/internal/delivery"
)

func newPostProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		first  bool
		number int
		folder string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "post-process <ap|pe> [dir]",
		Short: "Archive obsoletes and update ledger and snapshot for an existing delivery folder",
		Long: "Runs the post-delivery steps without creating a delivery folder, for deliveries\n" +
			"whose folder was prepared by hand. The change lists come from the current plan.",
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
			if strings.TrimSpace(folder) != "" {
				if folder, err = config.ExpandPath(folder); err != nil {
					return err
				}
			}
			return ctx.withSession(func(session *delivery.Session) error {
				plan, err := session.Plan(cmd.Context(), dir)
				if err != nil {
					return err
				}
				req := delivery.Request{
					First:    plan.First,
					Dir:      dir,
					Previous: plan.Previous,
					New:      plan.Changes.New,
					Revised:  plan.Changes.Revised,
					Changed:  plan.Changes.Changed,
					Obsolete: plan.Obsolete,
					Type:     t,
					Number:   number,
					Folder:   folder,
				}
				if cmd.Flags().Changed("first") {
					req.First = first
				}
				outcome, err := session.PostProcess(cmd.Context(), req)
				if errors.Is(err, delivery.ErrNothingToDeliver) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to deliver: no new, revised or changed documents")
					return nil
				}
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, outcomeToJSON(outcome, nil))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Post-processed delivery %s %d\n", outcome.Type, outcome.Number)
				printOutcome(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&first, "first", false, "Treat the run as the first delivery (default: derived from the snapshot)")
	cmd.Flags().IntVarP(&number, "number", "n", 0, "Delivery number (default: highest existing folder)")
	cmd.Flags().StringVar(&folder, "folder", "", "Delivery folder the ledger links to")
	addJSONFlag(cmd, &asJSON)
	return cmd
}
