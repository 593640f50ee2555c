package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"parkingagent/backend/services/parking-agent/internal/models"
)

func newFinesCommand(agent func() Agent) *cobra.Command {
	var pay bool

	cmd := &cobra.Command{
		Use:   "fines [PLATE...]",
		Short: "List fines for the account's vehicles, or pay the open ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if pay {
				settlement, err := agent().PayFines(cmd.Context())
				if err != nil {
					return err
				}
				if len(settlement.PaidIDs) == 0 {
					fmt.Fprintln(out, "No open fines")
					return nil
				}
				color.New(color.FgGreen).Fprintf(out, "Paid %v. Novo saldo: R$ %s\n", settlement.PaidIDs, settlement.NewBalance.StringFixed(2))
				return nil
			}

			fines, err := agent().Fines(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(fines) == 0 {
				fmt.Fprintln(out, "No fines")
				return nil
			}
			// The colored cell stays last; tabwriter counts escape bytes as width.
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLATE\tSTATE")
			for _, f := range fines {
				state := string(f.State)
				if f.State == models.FineOpen {
					state = color.RedString(state)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", f.ID, f.Plate, state)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&pay, "pay", false, "pay every open fine from the balance")
	return cmd
}
