package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	renderPrice float64
	renderDelta float64
	renderOut   string
)

var renderCmd = &cobra.Command{
	Use:   "render-card",
	Short: "Render an alert card to a PNG file without sending it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderPrice <= 0 {
			return errors.New("--price must be greater than 0")
		}

		price := decimal.NewFromFloat(renderPrice)
		delta := decimal.NewFromFloat(renderDelta)
		return getApp().RenderPreview(price, delta, renderOut)
	},
}

func init() {
	renderCmd.Flags().Float64Var(&renderPrice, "price", 0, "Price to display on the card")
	renderCmd.Flags().Float64Var(&renderDelta, "delta", 0, "Price change to display on the card")
	renderCmd.Flags().StringVar(&renderOut, "out", "card.png", "Output PNG path")
}
