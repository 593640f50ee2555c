package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"parkingagent/backend/services/parking-agent/internal/models"
)

func newRunCommand(agent func() Agent) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one pass: balance, fines, parking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := agent().Run(cmd.Context())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

func printReport(w io.Writer, r *models.RunReport) {
	okc := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed, color.Bold)

	fmt.Fprintf(w, "Run %s (%s)\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(w, strings.Repeat("─", 40))

	if r.NoVehicles {
		warn.Fprintln(w, "No vehicles on the account")
	} else if len(r.Plates) > 0 {
		fmt.Fprintf(w, "Vehicles:   %s\n", strings.Join(r.Plates, ", "))
	}

	if r.BalanceBefore != nil {
		fmt.Fprintf(w, "Balance:    R$ %s", r.BalanceBefore.StringFixed(2))
		if r.ToppedUp && r.BalanceAfter != nil {
			okc.Fprintf(w, " -> R$ %s (topped up)", r.BalanceAfter.StringFixed(2))
		}
		fmt.Fprintln(w)
	}
	if len(r.PaidFineIDs) > 0 {
		okc.Fprintf(w, "Fines paid: %v", r.PaidFineIDs)
		if r.BalanceAfterPay != nil {
			fmt.Fprintf(w, " (balance R$ %s)", r.BalanceAfterPay.StringFixed(2))
		}
		fmt.Fprintln(w)
	}
	if len(r.Activated) > 0 {
		okc.Fprintf(w, "Parked:     %s\n", strings.Join(r.Activated, ", "))
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:    %d warning(s)\n", r.Skipped)
	}
	for _, se := range r.StageErrors {
		warn.Fprintf(w, "Failed:     %s: %s\n", se.Stage, se.Message)
	}
	if r.Fatal != "" {
		bad.Fprintf(w, "Aborted:    %s\n", r.Fatal)
	}
}
