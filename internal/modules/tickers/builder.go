// Package tickers builds the immutable CIK-to-symbol map used by the fetch workers.
package tickers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aristath/edgardiff/internal/clientdata"
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/rs/zerolog"
)

// ErrUnknownCIK is returned when a filer has no ticker symbol.
var ErrUnknownCIK = errors.New("no ticker symbol for CIK")

// minOverrideLine is the shortest override line that can hold "<cik> <symbol>"
const minOverrideLine = 6

// FeedGetter fetches the remote ticker feed
type FeedGetter interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// Builder assembles a TickerMap from the remote feed and a local override file
type Builder struct {
	client       FeedGetter
	feedURL      string
	overridePath string
	cacheRepo    *clientdata.Repository
	log          zerolog.Logger
}

// NewBuilder creates a ticker map builder.
// cacheRepo is optional - if nil, the feed is fetched on every build
func NewBuilder(client FeedGetter, feedURL, overridePath string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Builder {
	return &Builder{
		client:       client,
		feedURL:      feedURL,
		overridePath: overridePath,
		cacheRepo:    cacheRepo,
		log:          log.With().Str("component", "tickers").Logger(),
	}
}

// Build returns the merged map. Override entries replace feed entries.
func (b *Builder) Build(ctx context.Context) (*domain.TickerMap, error) {
	symbols, err := b.feed(ctx)
	if err != nil {
		return nil, err
	}
	feedSize := len(symbols)

	overrides, err := readOverrides(b.overridePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		b.log.Info().Str("path", b.overridePath).Msg("No ticker override file")
	case err != nil:
		return nil, err
	}
	for cik, symbol := range overrides {
		symbols[cik] = symbol
	}

	b.log.Info().
		Int("feed", feedSize).
		Int("overrides", len(overrides)).
		Int("total", len(symbols)).
		Msg("Ticker map built")

	return domain.NewTickerMap(symbols), nil
}

// feed fetches and parses the remote feed, going through the cache when one is configured.
func (b *Builder) feed(ctx context.Context) (map[int64]string, error) {
	if b.cacheRepo != nil {
		if data, err := b.cacheRepo.GetIfFresh(clientdata.TableSECTickers, b.feedURL); err == nil && data != nil {
			var cached map[int64]string
			if err := json.Unmarshal(data, &cached); err == nil {
				b.log.Debug().Int("symbols", len(cached)).Msg("Cache hit")
				return cached, nil
			}
		}
	}

	body, err := b.client.Get(ctx, b.feedURL)
	if err != nil {
		if stale, ok := b.staleFeed(); ok {
			b.log.Warn().Err(err).Msg("Ticker feed failed, using stale cached feed")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch ticker feed: %w", err)
	}

	symbols, skipped := ParseFeed(string(body))
	if skipped > 0 {
		b.log.Warn().Int("skipped", skipped).Msg("Skipped malformed ticker feed lines")
	}

	if b.cacheRepo != nil {
		if err := b.cacheRepo.Store(clientdata.TableSECTickers, b.feedURL, symbols, clientdata.TTLSECTickers); err != nil {
			b.log.Warn().Err(err).Msg("Failed to cache ticker feed")
		}
	}

	return symbols, nil
}

func (b *Builder) staleFeed() (map[int64]string, bool) {
	if b.cacheRepo == nil {
		return nil, false
	}
	data, err := b.cacheRepo.Get(clientdata.TableSECTickers, b.feedURL)
	if err != nil || data == nil {
		return nil, false
	}
	var cached map[int64]string
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return cached, true
}

// ParseFeed parses tab-delimited "symbol<TAB>cik" lines. Symbols are upper-cased for the
// market data API. It returns the map and the number of malformed lines skipped.
func ParseFeed(body string) (map[int64]string, int) {
	symbols := make(map[int64]string)
	skipped := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			skipped++
			continue
		}
		cik, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		symbol := strings.TrimSpace(parts[0])
		if err != nil || symbol == "" {
			skipped++
			continue
		}
		symbols[cik] = strings.ToUpper(symbol)
	}
	return symbols, skipped
}

// readOverrides reads "cik symbol" lines. Comment lines and lines too short to hold an entry
// are ignored. Override symbols are used exactly as written.
func readOverrides(path string) (map[int64]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	overrides := make(map[int64]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || len(line) < minOverrideLine {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		cik, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		overrides[cik] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticker overrides: %w", err)
	}
	return overrides, nil
}
