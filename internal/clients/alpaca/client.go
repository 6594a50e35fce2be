// Package alpaca provides daily price history from the Alpaca market data API.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/aristath/edgardiff/internal/clientdata"
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/rs/zerolog"
)

// barsAPI is the subset of the marketdata client used here
type barsAPI interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Client fetches daily bars and caches them in the client data store.
// It implements domain.PriceHistoryProvider.
type Client struct {
	api       barsAPI
	feed      marketdata.Feed
	location  *time.Location
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
	cacheTTL  time.Duration
}

// Options configures the market data connection.
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string // empty uses the public data endpoint
	Feed      string // iex or sip
	CacheTTL  time.Duration
}

// NewClient creates a new market data client.
// cacheRepo is optional - if nil, caching is disabled
func NewClient(opts Options, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	api := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
		BaseURL:   opts.BaseURL,
		Feed:      marketdata.Feed(strings.ToLower(opts.Feed)),
	})
	return newClient(api, opts, cacheRepo, log)
}

func newClient(api barsAPI, opts Options, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = clientdata.TTLPriceHistory
	}
	return &Client{
		api:       api,
		feed:      marketdata.Feed(strings.ToLower(opts.Feed)),
		location:  easternLocation(),
		log:       log.With().Str("client", "alpaca").Logger(),
		cacheRepo: cacheRepo,
		cacheTTL:  ttl,
	}
}

func easternLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDailyBars returns daily bars for symbol with trading dates in [start, end].
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.DailyBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(clientdata.TablePriceHistory, cacheKey)
		if err == nil && data != nil {
			var cached []domain.DailyBar
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Int("bars", len(cached)).Msg("Cache hit")
				return cached, nil
			}
		}
	}

	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, c.location)
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, c.location)

	bars, err := c.api.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Raw,
		Start:      from,
		End:        to,
		Feed:       c.feed,
	})
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Int("bars", len(stale)).
				Msg("API failed, using stale cached bars")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
	}

	result := make([]domain.DailyBar, 0, len(bars))
	for _, b := range bars {
		ts := b.Timestamp.In(c.location)
		result = append(result, domain.DailyBar{
			Date:   time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(clientdata.TablePriceHistory, cacheKey, result, c.cacheTTL); err != nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache price history")
		}
	}

	c.log.Debug().Str("symbol", symbol).Int("bars", len(result)).Msg("Fetched bars")

	return result, nil
}

// getStaleFromCache retrieves cached bars even if expired.
func (c *Client) getStaleFromCache(cacheKey string) ([]domain.DailyBar, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	data, err := c.cacheRepo.Get(clientdata.TablePriceHistory, cacheKey)
	if err != nil || data == nil {
		return nil, false
	}
	var cached []domain.DailyBar
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return cached, true
}
