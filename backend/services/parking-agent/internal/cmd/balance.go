package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newBalanceCommand(agent func() Agent) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the prepaid balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := agent().Balance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saldo: R$ %s\n", balance.Amount.StringFixed(2))
			return nil
		},
	}
}

func newTopUpCommand(agent func() Agent) *cobra.Command {
	return &cobra.Command{
		Use:   "topup AMOUNT",
		Short: "Buy credit with the configured card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			result, err := agent().TopUp(cmd.Context(), amount)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Novo saldo: R$ %s\n", result.Balance.Amount.StringFixed(2))
			return nil
		},
	}
}
