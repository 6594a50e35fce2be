// Package prices attributes a near-term price reaction to a filing.
package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrZeroBase is returned by RelativeChange when the base price is zero
var ErrZeroBase = errors.New("relative change from zero base price")

const (
	dateLayout = "2006-01-02"
	// History window fetched after the accepted date, in calendar days
	historyWindowDays = 3
	changePrecision   = 6
)

// RelativeChange returns (b - a) / a rounded to six decimal places, where a is the earlier price.
func RelativeChange(a, b float64) (float64, error) {
	base := decimal.NewFromFloat(a)
	if base.IsZero() {
		return 0, ErrZeroBase
	}
	change := decimal.NewFromFloat(b).Sub(base).Div(base).Round(changePrecision)
	f, _ := change.Float64()
	return f, nil
}

// NextBusinessDay returns the first weekday strictly after day. Exchange holidays are not
// modelled; a holiday shows up as a missing history row.
func NextBusinessDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Correlator computes price reactions for eligible filings
type Correlator struct {
	history  domain.PriceHistoryProvider
	fromHour int
	toHour   int
	log      zerolog.Logger
}

// NewCorrelator creates a correlator. Filings accepted between fromHour:00 and toHour:59
// (inclusive, in the accepted timestamp's own zone) are eligible.
func NewCorrelator(history domain.PriceHistoryProvider, fromHour, toHour int, log zerolog.Logger) *Correlator {
	return &Correlator{
		history:  history,
		fromHour: fromHour,
		toHour:   toHour,
		log:      log.With().Str("component", "price_correlator").Logger(),
	}
}

// Eligible reports whether a filing accepted at acceptedAt is in the after-close window
func (c *Correlator) Eligible(acceptedAt time.Time) bool {
	h := acceptedAt.Hour()
	return h >= c.fromHour && h <= c.toHour
}

// Correlate returns the price reaction for a filing, or nil when no signal is available:
// the filing is outside the eligible window, there is no history, or the next business day
// has no row. An error is returned only when the history provider fails.
func (c *Correlator) Correlate(ctx context.Context, acceptedAt time.Time, symbol string) (*domain.Correlation, error) {
	log := c.log.With().Str("ticker", symbol).Time("accepted", acceptedAt).Logger()

	if !c.Eligible(acceptedAt) {
		log.Debug().Msg("Accepted outside the eligible window")
		return nil, nil
	}

	acceptedDay := time.Date(acceptedAt.Year(), acceptedAt.Month(), acceptedAt.Day(), 0, 0, 0, 0, time.UTC)
	bars, err := c.history.GetDailyBars(ctx, symbol, acceptedDay, acceptedDay.AddDate(0, 0, historyWindowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		log.Debug().Msg("No price history")
		return nil, nil
	}

	byDate := make(map[string]domain.DailyBar, len(bars))
	for _, bar := range bars {
		byDate[bar.Date.Format(dateLayout)] = bar
	}

	nextDay := NextBusinessDay(acceptedDay)
	next, ok := byDate[nextDay.Format(dateLayout)]
	if !ok {
		log.Debug().Str("date", nextDay.Format(dateLayout)).Msg("No history for next business day")
		return nil, nil
	}

	change, err := RelativeChange(next.Open, next.Close)
	if err != nil {
		log.Debug().Err(err).Msg("Unusable next-day prices")
		return nil, nil
	}
	result := &domain.Correlation{PriceChange: change}

	followingDay := NextBusinessDay(nextDay)
	following, ok := byDate[followingDay.Format(dateLayout)]
	if !ok {
		log.Debug().Str("date", followingDay.Format(dateLayout)).Msg("No history for following business day")
		return result, nil
	}

	change2, err := RelativeChange(next.Open, following.Open)
	if err == nil {
		result.PriceChange2 = &change2
	}

	return result, nil
}
