package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulatePrice float64
	simulateDelta float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Inject a synthetic price move and deliver the resulting alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--price must be greater than 0")
		}

		price := decimal.NewFromFloat(simulatePrice)
		delta := decimal.NewFromFloat(simulateDelta)
		return getApp().SimulateAlert(cmd.Context(), price, delta)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Current price to simulate")
	simulateCmd.Flags().Float64Var(&simulateDelta, "delta", 0, "Price change relative to the stored baseline")
}
