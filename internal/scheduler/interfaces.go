package scheduler

import (
	"context"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/dataset"
	"github.com/aristath/edgardiff/internal/modules/differences"
	"github.com/aristath/edgardiff/internal/modules/fetch"
	"github.com/aristath/edgardiff/internal/modules/index"
)

// IndexAcquirer builds the aggregate filing index
type IndexAcquirer interface {
	Acquire(ctx context.Context, start, end domain.Period) (index.AcquireResult, error)
}

// TickerMapBuilder builds the filer to ticker mapping
type TickerMapBuilder interface {
	Build(ctx context.Context) (*domain.TickerMap, error)
}

// EntryRunner processes index entries with bounded parallelism
type EntryRunner interface {
	Run(ctx context.Context, entries []domain.IndexEntry) (fetch.Stats, error)
}

// RunnerFactory creates an EntryRunner bound to a ticker mapping
type RunnerFactory func(tickers *domain.TickerMap) EntryRunner

// DifferenceProcessor runs the diff stage
type DifferenceProcessor interface {
	Process(ctx context.Context) (differences.Stats, error)
}

// DatasetExporter writes the labeled dataset
type DatasetExporter interface {
	Export(ctx context.Context, path string) (dataset.Result, error)
}

// DocumentClearer removes previously normalized documents
type DocumentClearer interface {
	Clear() (int, error)
}

// StoreTruncater empties the filings store
type StoreTruncater interface {
	Truncate(ctx context.Context) error
}
