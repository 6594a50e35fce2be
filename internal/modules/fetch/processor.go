// Package fetch runs the per-filing fetch, correlate and normalize work over the aggregate
// index with bounded parallelism.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/tickers"
	"github.com/rs/zerolog"
)

var (
	// ErrNoSignal means the filing produced no price reaction; nothing is persisted.
	ErrNoSignal = errors.New("no price signal")
	// ErrPersist wraps store failures. It is the only per-entry error that aborts the run.
	ErrPersist = errors.New("failed to persist filing")
)

// PageGetter fetches EDGAR pages
type PageGetter interface {
	Get(ctx context.Context, path string) ([]byte, error)
	URL(path string) string
}

// PriceCorrelator attributes a price reaction to a filing
type PriceCorrelator interface {
	Correlate(ctx context.Context, acceptedAt time.Time, symbol string) (*domain.Correlation, error)
}

// DocumentNormalizer cleans and persists a filing document, returning its name
type DocumentNormalizer interface {
	Normalize(raw string, cik int64, acceptedAt time.Time) (string, error)
}

// RecordStore persists filing records
type RecordStore interface {
	Insert(ctx context.Context, record *domain.FilingRecord) (int64, error)
}

// Processor handles one index entry end to end
type Processor struct {
	client     PageGetter
	tickers    *domain.TickerMap
	correlator PriceCorrelator
	normalizer DocumentNormalizer
	store      RecordStore
	formType   string
	location   *time.Location
	log        zerolog.Logger
}

// NewProcessor creates a processor. Accepted timestamps on overview pages are read in loc
// (EDGAR reports Eastern time).
func NewProcessor(
	client PageGetter,
	tickerMap *domain.TickerMap,
	correlator PriceCorrelator,
	normalizer DocumentNormalizer,
	store RecordStore,
	formType string,
	loc *time.Location,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		client:     client,
		tickers:    tickerMap,
		correlator: correlator,
		normalizer: normalizer,
		store:      store,
		formType:   formType,
		location:   loc,
		log:        log.With().Str("component", "fetch_processor").Logger(),
	}
}

// Process fetches, correlates, normalizes and stores one entry.
// Skips are reported as ErrNoTargetDocument, ErrNoAcceptedDate, ErrNoSignal or
// tickers.ErrUnknownCIK; store failures wrap ErrPersist.
func (p *Processor) Process(ctx context.Context, entry domain.IndexEntry) error {
	overviewPath := OverviewPath(entry.Path)
	log := p.log.With().
		Int64("cik", entry.CIK).
		Str("company", entry.CompanyName).
		Str("url", p.client.URL(overviewPath)).
		Logger()

	// Without a symbol there can be no signal; skip before touching the network.
	symbol, ok := p.tickers.Lookup(entry.CIK)
	if !ok {
		log.Debug().Msg("No ticker symbol")
		return tickers.ErrUnknownCIK
	}
	log = log.With().Str("ticker", symbol).Logger()

	page, err := p.client.Get(ctx, overviewPath)
	if err != nil {
		return fmt.Errorf("failed to fetch overview page: %w", err)
	}

	overview, err := ParseOverview(page, p.formType, p.location)
	if err != nil {
		return err
	}

	correlation, err := p.correlator.Correlate(ctx, overview.AcceptedAt, symbol)
	if err != nil {
		return err
	}
	if correlation == nil {
		return ErrNoSignal
	}

	body, err := p.client.Get(ctx, overview.DocumentHref)
	if err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}

	fileName, err := p.normalizer.Normalize(string(body), entry.CIK, overview.AcceptedAt)
	if err != nil {
		return err
	}

	record := &domain.FilingRecord{
		CIK:          entry.CIK,
		CompanyName:  entry.CompanyName,
		URL:          p.client.URL(overviewPath),
		DateFiled:    entry.DateFiled,
		DateAccepted: overview.AcceptedAt,
		TickerSymbol: symbol,
		FileName:     fileName,
		PriceChange:  correlation.PriceChange,
		PriceChange2: correlation.PriceChange2,
	}
	id, err := p.store.Insert(ctx, record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	log.Info().
		Int64("id", id).
		Str("file", fileName).
		Float64("price_change", correlation.PriceChange).
		Msg("Stored filing")

	return nil
}
