package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/modules/dataset"
	"github.com/aristath/edgardiff/internal/modules/differences"
	"github.com/aristath/edgardiff/internal/modules/fetch"
	"github.com/aristath/edgardiff/internal/modules/index"
	testutil "github.com/aristath/edgardiff/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAcquirer struct{ mock.Mock }

func (m *mockAcquirer) Acquire(ctx context.Context, start, end domain.Period) (index.AcquireResult, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(index.AcquireResult), args.Error(1)
}

type stubTickers struct {
	tickers *domain.TickerMap
	err     error
}

func (s stubTickers) Build(ctx context.Context) (*domain.TickerMap, error) {
	return s.tickers, s.err
}

type stubRunner struct {
	tickers *domain.TickerMap
	entries []domain.IndexEntry
}

func (s *stubRunner) Run(ctx context.Context, entries []domain.IndexEntry) (fetch.Stats, error) {
	s.entries = entries
	return fetch.Stats{Total: len(entries), Stored: len(entries)}, nil
}

type stubDiff struct{ err error }

func (s stubDiff) Process(ctx context.Context) (differences.Stats, error) {
	return differences.Stats{Pairs: 2, Updated: 1}, s.err
}

type stubExporter struct{ path string }

func (s *stubExporter) Export(ctx context.Context, path string) (dataset.Result, error) {
	s.path = path
	return dataset.Result{Path: path}, nil
}

func TestAcquireIndexJob(t *testing.T) {
	start := domain.Period{Year: 2021, Quarter: 1}
	end := domain.Period{Year: 2021, Quarter: 2}

	acquirer := &mockAcquirer{}
	acquirer.On("Acquire", mock.Anything, start, end).Return(index.AcquireResult{Periods: 2, Lines: 10}, nil)

	job := NewAcquireIndexJob(acquirer, start, end, zerolog.Nop())
	assert.Equal(t, "acquire_index", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 10, job.LastResult().Lines)
	acquirer.AssertExpectations(t)
}

func TestFetchFilingsJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.idx")
	require.NoError(t, os.WriteFile(path, []byte(
		"0000123|ACME CORP|10-Q|2021-05-01|edgar/data/123/0000123-21-000001.txt\n"+
			"0000456|OTHER INC|10-Q|2021-05-02|edgar/data/456/0000456-21-000001.txt\n"), 0644))

	tickerMap := domain.NewTickerMap(map[int64]string{123: "ACME"})
	runner := &stubRunner{}
	job := NewFetchFilingsJob(path, "10-Q", stubTickers{tickers: tickerMap}, func(tm *domain.TickerMap) EntryRunner {
		runner.tickers = tm
		return runner
	}, zerolog.Nop())

	assert.Equal(t, "fetch_filings", job.Name())
	require.NoError(t, job.Run())
	assert.Same(t, tickerMap, runner.tickers)
	assert.Len(t, runner.entries, 2)
	assert.Equal(t, fetch.Stats{Total: 2, Stored: 2}, job.LastStats())
}

func TestFetchFilingsJob_Errors(t *testing.T) {
	newRunner := func(tm *domain.TickerMap) EntryRunner { return &stubRunner{} }

	missing := NewFetchFilingsJob(filepath.Join(t.TempDir(), "absent.idx"), "10-Q", stubTickers{}, newRunner, zerolog.Nop())
	assert.ErrorContains(t, missing.Run(), "aggregate index")

	path := filepath.Join(t.TempDir(), "master.idx")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	noTickers := NewFetchFilingsJob(path, "10-Q", stubTickers{err: errors.New("feed down")}, newRunner, zerolog.Nop())
	assert.ErrorContains(t, noTickers.Run(), "feed down")
}

func TestComputeDifferencesJob(t *testing.T) {
	job := NewComputeDifferencesJob(stubDiff{}, zerolog.Nop())
	assert.Equal(t, "compute_differences", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, job.LastStats().Updated)

	failing := NewComputeDifferencesJob(stubDiff{err: errors.New("locked")}, zerolog.Nop())
	assert.Error(t, failing.Run())
}

func TestExportDatasetJob(t *testing.T) {
	exporter := &stubExporter{}
	job := NewExportDatasetJob(exporter, "/tmp/out/dataset.csv", zerolog.Nop())
	assert.Equal(t, "export_dataset", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, "/tmp/out/dataset.csv", exporter.path)
}

func TestResetRunJob(t *testing.T) {
	docs := testutil.NewMockDocuments()
	docs.Put("1-2021-05-03.txt", "Old text.")
	store := testutil.NewMockFilingStore(testutil.NewFilingFixtures()...)

	job := NewResetRunJob(docs, store, zerolog.Nop())
	assert.Equal(t, "reset_run", job.Name())
	require.NoError(t, job.Run())
	assert.Empty(t, store.Records())
	_, err := docs.ReadLines("1-2021-05-03.txt")
	assert.ErrorIs(t, err, testutil.ErrDocumentNotFound)

	failingStore := testutil.NewMockFilingStore()
	failingStore.SetWriteError(errors.New("readonly"))
	failing := NewResetRunJob(testutil.NewMockDocuments(), failingStore, zerolog.Nop())
	assert.ErrorContains(t, failing.Run(), "readonly")
}
