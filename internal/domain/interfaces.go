package domain

import (
	"context"
	"time"
)

// PriceHistoryProvider returns daily bars for a symbol between two dates (inclusive).
// Implemented by the market data client and by the caching wrapper in front of it.
// This interface lives here so the price correlator does not depend on a concrete client.
type PriceHistoryProvider interface {
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]DailyBar, error)
}
