package filings

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
	testutil "github.com/aristath/edgardiff/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "filings")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func ptr[T any](v T) *T { return &v }

func record(cik int64, accepted time.Time) *domain.FilingRecord {
	return &domain.FilingRecord{
		CIK:          cik,
		CompanyName:  "ACME CORP",
		TickerSymbol: "ACME",
		URL:          "https://www.sec.gov/Archives/edgar/data/123/0000123-21-000001-index.html",
		DateFiled:    accepted.Format("2006-01-02"),
		DateAccepted: accepted,
		FileName:     "123-" + accepted.Format("2006-01-02") + ".txt",
		PriceChange:  0.1,
	}
}

func TestInsertAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	accepted := time.Date(2021, 5, 3, 17, 0, 0, 0, eastern)

	rec := record(123, accepted)
	rec.PriceChange2 = ptr(-0.02)

	id, err := repo.Insert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(123), got.CIK)
	assert.True(t, accepted.Equal(got.DateAccepted))
	assert.Equal(t, 0.1, got.PriceChange)
	require.NotNil(t, got.PriceChange2)
	assert.Equal(t, -0.02, *got.PriceChange2)
	assert.Nil(t, got.Difference)

	missing, err := repo.GetByID(ctx, id+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListPendingDifferences_Ordering(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2021, 5, 3, 21, 0, 0, 0, time.UTC)
	for _, rec := range []*domain.FilingRecord{
		record(200, base),
		record(100, base.AddDate(0, 3, 0)),
		record(100, base),
	} {
		_, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
	}

	pending, err := repo.ListPendingDifferences(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, int64(100), pending[0].CIK)
	assert.True(t, pending[0].DateAccepted.Before(pending[1].DateAccepted))
	assert.Equal(t, int64(200), pending[2].CIK)

	require.NoError(t, repo.SetDifference(ctx, pending[1].ID, "A new sentence."))

	pending, err = repo.ListPendingDifferences(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	assert.Error(t, repo.SetDifference(ctx, 9999, "x"))
}

func TestListLabeledAndCount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Date(2021, 5, 3, 21, 0, 0, 0, time.UTC)

	labeled := record(1, base)
	labeled.PriceChange2 = ptr(0.03)
	labeled.Difference = ptr("New risk.")

	onlyDiff := record(2, base)
	onlyDiff.Difference = ptr("Other.")

	onlyPrice := record(3, base)
	onlyPrice.PriceChange2 = ptr(0.01)

	for _, rec := range []*domain.FilingRecord{labeled, onlyDiff, onlyPrice} {
		_, err := repo.Insert(ctx, rec)
		require.NoError(t, err)
	}

	got, err := repo.ListLabeled(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].CIK)

	counts, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 3, WithDifference: 2, Labeled: 1}, counts)

	byCIK, err := repo.ListByCIK(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, byCIK, 1)
}

func TestTruncate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.Insert(ctx, record(1, time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.Truncate(ctx))

	counts, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Total)

	// Id generation restarts after a reset
	again, err := repo.Insert(ctx, record(1, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, first, again)
}
