// Package cmd holds the parking-agent command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"parkingagent/backend/services/parking-agent/internal/models"
	"parkingagent/backend/services/parking-agent/internal/service"
)

// Agent is the application surface the commands drive.
type Agent interface {
	Run(ctx context.Context) (*models.RunReport, error)
	Balance(ctx context.Context) (models.Balance, error)
	TopUp(ctx context.Context, amount decimal.Decimal) (service.TopUpResult, error)
	Fines(ctx context.Context, plates []string) ([]models.Fine, error)
	PayFines(ctx context.Context) (service.Settlement, error)
	Park(ctx context.Context, in service.ManualActivation) error
	History(ctx context.Context, limit int) ([]models.RunReport, error)
	Close()
}

// Factory builds the agent once flags are parsed.
type Factory func(ctx context.Context) (Agent, error)

// NewRootCommand returns the parking-agent command tree. Running it without a
// subcommand performs one automation pass.
func NewRootCommand(factory Factory) *cobra.Command {
	var (
		configFile string
		envFile    string
		agent      Agent
	)

	root := &cobra.Command{
		Use:   "parking-agent",
		Short: "Automates balance top-up, fine payment and parking activation",
		Long: `parking-agent signs in to the parking API, keeps the prepaid balance above
a threshold, pays open fines for the account's vehicles and starts a parking
activation for every pending arrival warning.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			if envFile != "" {
				if err := os.Setenv("ENV_FILE", envFile); err != nil {
					return err
				}
			}
			a, err := factory(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			agent = a
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default .envs)")

	get := func() Agent { return agent }
	release := func() {
		if agent != nil {
			agent.Close()
			agent = nil
		}
	}

	runCmd := newRunCommand(get)
	root.AddCommand(
		runCmd,
		newBalanceCommand(get),
		newTopUpCommand(get),
		newFinesCommand(get),
		newParkCommand(get),
		newHistoryCommand(get),
	)
	for _, c := range root.Commands() {
		closeAfter(c, release)
	}
	root.RunE = runCmd.RunE
	return root
}

// closeAfter releases the agent once RunE returns, failed or not.
func closeAfter(c *cobra.Command, release func()) {
	run := c.RunE
	if run == nil {
		return
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		defer release()
		return run(cmd, args)
	}
}
