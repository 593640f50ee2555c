package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCommand(agent func() Agent) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := agent().History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			if len(reports) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			// Result is colored, so it is the last column.
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tTOPPED UP\tFINES\tPARKED\tRESULT")
			for _, r := range reports {
				result := color.GreenString("ok")
				switch {
				case r.Fatal != "":
					result = color.RedString("aborted")
				case len(r.StageErrors) > 0:
					result = color.YellowString("partial")
				}
				fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"), r.ToppedUp, len(r.PaidFineIDs), len(r.Activated), result)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}
