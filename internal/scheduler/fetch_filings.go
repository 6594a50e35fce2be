package scheduler

import (
	"fmt"

	"github.com/aristath/edgardiff/internal/modules/fetch"
	"github.com/aristath/edgardiff/internal/modules/index"
	"github.com/rs/zerolog"
)

// FetchFilingsJob reads the aggregate index and runs every entry through the fetch pool
type FetchFilingsJob struct {
	JobBase
	indexPath string
	formType  string
	tickers   TickerMapBuilder
	newRunner RunnerFactory
	last      fetch.Stats
	log       zerolog.Logger
}

// NewFetchFilingsJob creates a new FetchFilingsJob
func NewFetchFilingsJob(indexPath, formType string, tickers TickerMapBuilder, newRunner RunnerFactory, log zerolog.Logger) *FetchFilingsJob {
	return &FetchFilingsJob{
		indexPath: indexPath,
		formType:  formType,
		tickers:   tickers,
		newRunner: newRunner,
		log:       log.With().Str("job", "fetch_filings").Logger(),
	}
}

// Name returns the job name
func (j *FetchFilingsJob) Name() string {
	return "fetch_filings"
}

// Run builds the ticker mapping, then processes the index
func (j *FetchFilingsJob) Run() error {
	ctx := j.Context()

	entries, err := index.ReadEntries(j.indexPath, j.formType)
	if err != nil {
		return fmt.Errorf("failed to read aggregate index: %w", err)
	}

	tickerMap, err := j.tickers.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build ticker map: %w", err)
	}

	j.log.Info().
		Int("entries", len(entries)).
		Int("tickers", tickerMap.Len()).
		Msg("Fetching filings")

	stats, err := j.newRunner(tickerMap).Run(ctx, entries)
	j.last = stats
	return err
}

// LastStats returns the counters of the most recent run
func (j *FetchFilingsJob) LastStats() fetch.Stats {
	return j.last
}
