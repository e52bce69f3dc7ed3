package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuoteFetcher retrieves the current price for the tracked symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context) (decimal.Decimal, error)
}
