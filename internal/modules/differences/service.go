package differences

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Store is the slice of the filings repository the diff stage needs
type Store interface {
	ListPendingDifferences(ctx context.Context) ([]domain.FilingRecord, error)
	SetDifference(ctx context.Context, id int64, difference string) error
}

// DocumentReader reads normalized documents line by line
type DocumentReader interface {
	ReadLines(name string) ([]string, error)
}

// Options tune pairing and matching
type Options struct {
	MinWeeks  int
	MaxWeeks  int
	Threshold int
	Workers   int
	// Location is the zone week gaps are counted in; nil means UTC
	Location *time.Location
}

// Stats summarises a diff run
type Stats struct {
	Records   int `json:"records"`
	Pairs     int `json:"pairs"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Service runs the diff stage over the store
type Service struct {
	store Store
	docs  DocumentReader
	opts  Options
	log   zerolog.Logger
}

// NewService creates the diff stage service
func NewService(store Store, docs DocumentReader, opts Options, log zerolog.Logger) *Service {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	return &Service{
		store: store,
		docs:  docs,
		opts:  opts,
		log:   log.With().Str("component", "differences").Logger(),
	}
}

// Process pairs every record still lacking a difference with its predecessor and stores the
// sentences it introduced. Pairs with an unreadable document are skipped; a failed update
// aborts the run.
func (s *Service) Process(ctx context.Context) (Stats, error) {
	start := time.Now()

	records, err := s.store.ListPendingDifferences(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list pending records: %w", err)
	}
	pairs := Pair(records, s.opts.MinWeeks, s.opts.MaxWeeks, s.opts.Location)

	s.log.Info().
		Int("records", len(records)).
		Int("pairs", len(pairs)).
		Int("workers", s.opts.Workers).
		Msg("Computing differences")

	var updated, unchanged, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan domain.DiffPair, 2*s.opts.Workers)

	g.Go(func() error {
		defer close(tasks)
		for _, pair := range pairs {
			select {
			case tasks <- pair:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < s.opts.Workers; i++ {
		g.Go(func() error {
			engine, err := NewEngine(s.opts.Threshold)
			if err != nil {
				return err
			}
			for pair := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}

				log := s.log.With().
					Int64("id", pair.CurrentID).
					Str("current", pair.CurrentFile).
					Str("previous", pair.PreviousFile).
					Logger()

				current, err := s.docs.ReadLines(pair.CurrentFile)
				if err != nil {
					skipped.Add(1)
					log.Warn().Err(err).Msg("Cannot read current document")
					continue
				}
				previous, err := s.docs.ReadLines(pair.PreviousFile)
				if err != nil {
					skipped.Add(1)
					log.Warn().Err(err).Msg("Cannot read previous document")
					continue
				}

				added := engine.Diff(current, previous)
				if len(added) == 0 {
					unchanged.Add(1)
					continue
				}

				if err := s.store.SetDifference(gctx, pair.CurrentID, strings.Join(added, "\n")); err != nil {
					return fmt.Errorf("failed to store difference for record %d: %w", pair.CurrentID, err)
				}
				updated.Add(1)
				log.Debug().Int("sentences", len(added)).Msg("Difference logged")
			}
			return nil
		})
	}

	err = g.Wait()

	stats := Stats{
		Records:   len(records),
		Pairs:     len(pairs),
		Updated:   int(updated.Load()),
		Unchanged: int(unchanged.Load()),
		Skipped:   int(skipped.Load()),
	}

	s.log.Info().
		Int("updated", stats.Updated).
		Int("unchanged", stats.Unchanged).
		Int("skipped", stats.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("Diff stage complete")

	return stats, err
}
