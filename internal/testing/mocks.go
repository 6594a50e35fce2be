package testing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
)

// MockFilingStore is an in-memory filings store for testing.
// It satisfies the store interfaces of the fetch, differences and dataset packages.
type MockFilingStore struct {
	mu       sync.RWMutex
	records  []domain.FilingRecord
	nextID   int64
	err      error // returned by reads
	writeErr error // returned by writes
}

// NewMockFilingStore creates a new mock filings store seeded with records.
// Records without an ID are assigned one.
func NewMockFilingStore(records ...domain.FilingRecord) *MockFilingStore {
	m := &MockFilingStore{}
	for _, rec := range records {
		m.add(rec)
	}
	return m
}

// SetError sets the error returned by reads
func (m *MockFilingStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetWriteError sets the error returned by writes
func (m *MockFilingStore) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *MockFilingStore) add(rec domain.FilingRecord) int64 {
	if rec.ID == 0 {
		m.nextID++
		rec.ID = m.nextID
	} else if rec.ID > m.nextID {
		m.nextID = rec.ID
	}
	m.records = append(m.records, rec)
	return rec.ID
}

// Insert stores a copy of rec
func (m *MockFilingStore) Insert(ctx context.Context, rec *domain.FilingRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.add(*rec), nil
}

// Truncate removes every record
func (m *MockFilingStore) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.records = nil
	return nil
}

// ListPendingDifferences returns records without a difference, ordered by filer and acceptance
func (m *MockFilingStore) ListPendingDifferences(ctx context.Context) ([]domain.FilingRecord, error) {
	return m.list(func(rec domain.FilingRecord) bool { return rec.Difference == nil }, byFilerAndAcceptance)
}

// ListLabeled returns records carrying both a difference and a second price change, by id
func (m *MockFilingStore) ListLabeled(ctx context.Context) ([]domain.FilingRecord, error) {
	return m.list(func(rec domain.FilingRecord) bool {
		return rec.Difference != nil && rec.PriceChange2 != nil
	}, func(a, b domain.FilingRecord) bool { return a.ID < b.ID })
}

// SetDifference records the difference text of one filing
func (m *MockFilingStore) SetDifference(ctx context.Context, id int64, difference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Difference = &difference
			return nil
		}
	}
	return fmt.Errorf("filing %d not found", id)
}

// Records returns a snapshot of every stored record
func (m *MockFilingStore) Records() []domain.FilingRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.FilingRecord(nil), m.records...)
}

func byFilerAndAcceptance(a, b domain.FilingRecord) bool {
	if a.CIK != b.CIK {
		return a.CIK < b.CIK
	}
	return a.DateAccepted.Before(b.DateAccepted)
}

func (m *MockFilingStore) list(keep func(domain.FilingRecord) bool, less func(a, b domain.FilingRecord) bool) ([]domain.FilingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.FilingRecord
	for _, rec := range m.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// MockPriceHistory is a mock implementation of domain.PriceHistoryProvider for testing
type MockPriceHistory struct {
	mu    sync.RWMutex
	bars  map[string][]domain.DailyBar
	err   error
	calls int
}

// NewMockPriceHistory creates a new mock price history provider
func NewMockPriceHistory() *MockPriceHistory {
	return &MockPriceHistory{bars: make(map[string][]domain.DailyBar)}
}

// SetBars sets the bars returned for symbol
func (m *MockPriceHistory) SetBars(symbol string, bars []domain.DailyBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[symbol] = bars
}

// SetError sets the error to return
func (m *MockPriceHistory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times GetDailyBars was called
func (m *MockPriceHistory) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// GetDailyBars returns every bar set for symbol; the range is not applied
func (m *MockPriceHistory) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.DailyBar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.DailyBar(nil), m.bars[symbol]...), nil
}

// ErrDocumentNotFound is returned by MockDocuments for unknown names
var ErrDocumentNotFound = errors.New("document not found")

// MockDocuments is an in-memory normalized document store for testing
type MockDocuments struct {
	mu   sync.RWMutex
	docs map[string][]string
}

// NewMockDocuments creates a new mock document store
func NewMockDocuments() *MockDocuments {
	return &MockDocuments{docs: make(map[string][]string)}
}

// Put stores lines under name
func (m *MockDocuments) Put(name string, lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = lines
}

// ReadLines returns the lines stored under name
func (m *MockDocuments) ReadLines(name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrDocumentNotFound)
	}
	return lines, nil
}

// Clear removes every document and returns how many were removed
func (m *MockDocuments) Clear() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.docs)
	m.docs = make(map[string][]string)
	return n, nil
}
