package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"parkingagent/backend/services/parking-agent/internal/models"
	"parkingagent/backend/services/parking-agent/internal/service"
)

func newParkCommand(agent func() Agent) *cobra.Command {
	var (
		lat, lon float64
		rule     int
		extend   bool
		previous int64
		street   string
		number   string
		district string
	)

	cmd := &cobra.Command{
		Use:   "park PLATE",
		Short: "Start or extend a parking activation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.ManualActivation{
				Plate:                args[0],
				Extend:               extend,
				PreviousActivationID: previous,
			}
			if cmd.Flags().Changed("lat") {
				in.Location = &service.Location{Latitude: lat, Longitude: lon}
			}
			if rule > 0 {
				in.RuleID = &rule
			}
			if street != "" {
				in.Address = &models.Address{Street: street, Number: number, District: district}
			}
			if extend && previous == 0 {
				return fmt.Errorf("--extend requires --previous")
			}

			if err := agent().Park(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Parking started for %s\n", in.Plate)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude (default from config)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude (default from config)")
	cmd.Flags().IntVar(&rule, "rule", 0, "pricing rule id (default by vehicle type)")
	cmd.Flags().BoolVar(&extend, "extend", false, "extend an existing activation")
	cmd.Flags().Int64Var(&previous, "previous", 0, "activation id being extended")
	cmd.Flags().StringVar(&street, "street", "", "street address")
	cmd.Flags().StringVar(&number, "number", "", "street number")
	cmd.Flags().StringVar(&district, "district", "", "district")
	cmd.MarkFlagsRequiredTogether("lat", "lon")
	return cmd
}
