package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/tickers"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// EntryProcessor handles one index entry
type EntryProcessor interface {
	Process(ctx context.Context, entry domain.IndexEntry) error
}

// Stats summarises a pool run
type Stats struct {
	Total   int `json:"total"`
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Pool fans index entries out to a fixed number of workers
type Pool struct {
	processor EntryProcessor
	workers   int
	log       zerolog.Logger
}

// NewPool creates a pool of workers goroutines (at least one)
func NewPool(processor EntryProcessor, workers int, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		processor: processor,
		workers:   workers,
		log:       log.With().Str("component", "fetch_pool").Logger(),
	}
}

// Run processes every entry. A failing entry is logged and counted; only ErrPersist (or
// cancellation of ctx) stops the run, and that error is returned.
func (p *Pool) Run(ctx context.Context, entries []domain.IndexEntry) (Stats, error) {
	start := time.Now()
	var stored, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan domain.IndexEntry, 2*p.workers)

	g.Go(func() error {
		defer close(tasks)
		for _, entry := range entries {
			select {
			case tasks <- entry:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for entry := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}

				err := p.processor.Process(gctx, entry)
				switch {
				case err == nil:
					stored.Add(1)
				case errors.Is(err, ErrPersist):
					p.log.Error().Err(err).Int64("cik", entry.CIK).Msg("Persistence failure, aborting run")
					return err
				case isSkip(err):
					skipped.Add(1)
					p.log.Debug().Err(err).Int64("cik", entry.CIK).Str("path", entry.Path).Msg("Skipped filing")
				case gctx.Err() != nil:
					return gctx.Err()
				default:
					failed.Add(1)
					p.log.Warn().Err(err).Int64("cik", entry.CIK).Str("path", entry.Path).Msg("Failed to process filing")
				}
			}
			return nil
		})
	}

	err := g.Wait()

	stats := Stats{
		Total:   len(entries),
		Stored:  int(stored.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}

	p.log.Info().
		Int("workers", p.workers).
		Int("total", stats.Total).
		Int("stored", stats.Stored).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Fetch stage complete")

	return stats, err
}

func isSkip(err error) bool {
	return errors.Is(err, ErrNoSignal) ||
		errors.Is(err, ErrNoTargetDocument) ||
		errors.Is(err, ErrNoAcceptedDate) ||
		errors.Is(err, tickers.ErrUnknownCIK)
}
