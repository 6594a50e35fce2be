package fetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/tickers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor returns a configured outcome per CIK and records concurrency
type stubProcessor struct {
	outcomes map[int64]error
	delay    time.Duration

	mu        sync.Mutex
	processed []int64
	active    atomic.Int32
	maxActive atomic.Int32
}

func (s *stubProcessor) Process(ctx context.Context, entry domain.IndexEntry) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	s.processed = append(s.processed, entry.CIK)
	s.mu.Unlock()
	return s.outcomes[entry.CIK]
}

func entriesFor(ciks ...int64) []domain.IndexEntry {
	entries := make([]domain.IndexEntry, len(ciks))
	for i, cik := range ciks {
		entries[i] = domain.IndexEntry{CIK: cik, FormType: "10-Q"}
	}
	return entries
}

func TestPool_FailuresDoNotAbort(t *testing.T) {
	processor := &stubProcessor{outcomes: map[int64]error{
		2: ErrNoSignal,
		3: tickers.ErrUnknownCIK,
		4: errors.New("connection reset"),
		5: ErrNoTargetDocument,
	}}
	pool := NewPool(processor, 3, zerolog.Nop())

	stats, err := pool.Run(context.Background(), entriesFor(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 6, Stored: 2, Skipped: 3, Failed: 1}, stats)
	assert.Len(t, processor.processed, 6)
}

func TestPool_PersistFailureAborts(t *testing.T) {
	processor := &stubProcessor{
		outcomes: map[int64]error{1: ErrPersist},
		delay:    5 * time.Millisecond,
	}
	pool := NewPool(processor, 1, zerolog.Nop())

	ciks := make([]int64, 50)
	for i := range ciks {
		ciks[i] = int64(i + 1)
	}

	_, err := pool.Run(context.Background(), entriesFor(ciks...))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.Less(t, len(processor.processed), 50, "remaining entries are abandoned")
}

func TestPool_BoundedConcurrency(t *testing.T) {
	processor := &stubProcessor{delay: 2 * time.Millisecond}
	pool := NewPool(processor, 3, zerolog.Nop())

	ciks := make([]int64, 30)
	for i := range ciks {
		ciks[i] = int64(i)
	}

	stats, err := pool.Run(context.Background(), entriesFor(ciks...))
	require.NoError(t, err)
	assert.Equal(t, 30, stats.Stored)
	assert.LessOrEqual(t, processor.maxActive.Load(), int32(3))
}

func TestPool_Cancelled(t *testing.T) {
	processor := &stubProcessor{}
	pool := NewPool(processor, 0, zerolog.Nop())
	assert.Equal(t, 1, pool.workers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Run(ctx, entriesFor(1, 2, 3))
	assert.Error(t, err)
}

func TestPool_Empty(t *testing.T) {
	pool := NewPool(&stubProcessor{}, 4, zerolog.Nop())
	stats, err := pool.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}
