package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/suburb-insights/internal/finance"
)

var stampDutyCmd = &cobra.Command{
	Use:   "stamp-duty",
	Short: "Look up stamp duty for a price from the bracket schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		price, _ := cmd.Flags().GetFloat64("price")
		occupancy, _ := cmd.Flags().GetString("occupancy")
		if price <= 0 {
			return eris.Errorf("stamp-duty: --price must be positive, got %.2f", price)
		}
		state, err := stateFlag(cmd)
		if err != nil {
			return err
		}
		if state == "" {
			return eris.New("stamp-duty: --state is required")
		}

		calc, err := newCalculator(cmd.Context(), newLoader())
		if err != nil {
			return err
		}
		if !calc.HasSchedule() {
			return eris.Errorf("stamp-duty: no schedule loaded from %s", cfg.Data.StampDuty.Path)
		}

		occupancy = strings.ToUpper(occupancy)
		duty, err := calc.StampDuty(price, state, occupancy)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s stamp duty on %s: %s\n", state, occupancy, formatAUD(price), formatAUD(duty))
		return nil
	},
}

func init() {
	f := stampDutyCmd.Flags()
	f.Float64("price", 0, "purchase price")
	f.String("state", "", "state (e.g., VIC)")
	f.String("occupancy", finance.OwnerOccupier, "OO (owner occupier) or INV (investor)")
	_ = stampDutyCmd.MarkFlagRequired("price")
	_ = stampDutyCmd.MarkFlagRequired("state")

	rootCmd.AddCommand(stampDutyCmd)
}
