package app

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"sol-price-alerts/internal/alert"
)

// RenderPreview renders a card for the given price and delta and
// writes it to outPath without sending anything.
func (a *App) RenderPreview(price, delta decimal.Decimal, outPath string) error {
	renderer, err := a.newRenderer()
	if err != nil {
		return err
	}

	dir := alert.DirectionFlat
	switch delta.Sign() {
	case 1:
		dir = alert.DirectionUp
	case -1:
		dir = alert.DirectionDown
	}

	img, err := renderer.Render(alert.Quantize(price), alert.Quantize(delta), dir)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, img, 0o644); err != nil {
		return fmt.Errorf("write card to %s: %w", outPath, err)
	}

	a.Logger.Info().Str("path", outPath).Int("bytes", len(img)).Msg("card written")
	return nil
}
