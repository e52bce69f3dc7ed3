package assets

import (
	"fmt"
	"os"

	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	chart "github.com/wcharczuk/go-chart/v2"
)

// ResolveFont loads the first parseable TrueType font from the ordered
// candidate paths, falling back to the built-in face when none is
// usable. A missing or broken candidate is logged and skipped, never
// fatal.
func ResolveFont(candidates []string, logger zerolog.Logger) (*truetype.Font, error) {
	log := logger.With().Str("component", "assets").Logger()

	for _, path := range candidates {
		if path == "" {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Debug().Str("path", path).Err(err).Msg("font candidate unreadable")
			continue
		}
		f, err := truetype.Parse(raw)
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("font candidate unparseable")
			continue
		}
		return f, nil
	}

	f, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load built-in font: %w", err)
	}
	if len(candidates) > 0 {
		log.Debug().Msg("no font candidate usable, using built-in face")
	}
	return f, nil
}
