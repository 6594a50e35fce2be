package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE price_history (key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE sec_tickers (key TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// :memory: is per connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	bars := []map[string]interface{}{
		{"open": 10.0, "close": 10.5},
	}
	err := repo.Store(TablePriceHistory, "ACME:2021-08-06:2021-08-09", bars, TTLPriceHistory)
	require.NoError(t, err)

	var storedData string
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM price_history WHERE key = ?", "ACME:2021-08-06:2021-08-09").Scan(&storedData, &expiresAt)
	require.NoError(t, err)

	var parsed []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(storedData), &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, 10.5, parsed[0]["close"])

	expectedExpires := time.Now().Add(TTLPriceHistory).Unix()
	assert.InDelta(t, expectedExpires, expiresAt, 5)
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	require.NoError(t, repo.Store(TableSECTickers, "feed", map[string]string{"version": "1"}, time.Hour))
	require.NoError(t, repo.Store(TableSECTickers, "feed", map[string]string{"version": "2"}, time.Hour))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sec_tickers").Scan(&count))
	assert.Equal(t, 1, count)

	result, err := repo.GetIfFresh(TableSECTickers, "feed")
	require.NoError(t, err)
	require.NotNil(t, result)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(result, &parsed))
	assert.Equal(t, "2", parsed["version"])
}

func TestGetIfFresh_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	expiredAt := time.Now().Add(-time.Hour).Unix()
	_, err := db.Exec("INSERT INTO price_history (key, data, expires_at) VALUES (?, ?, ?)", "ACME", `{"status":"expired"}`, expiredAt)
	require.NoError(t, err)

	result, err := repo.GetIfFresh(TablePriceHistory, "ACME")
	require.NoError(t, err)
	assert.Nil(t, result, "Expected nil for expired data")

	// Get still returns stale data for API-failure fallback
	result, err = repo.Get(TablePriceHistory, "ACME")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.JSONEq(t, `{"status":"expired"}`, string(result))
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	result, err := repo.Get(TablePriceHistory, "NONEXISTENT")
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = repo.GetIfFresh(TablePriceHistory, "NONEXISTENT")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store("filings; DROP TABLE price_history", "k", 1, time.Hour)
	assert.Error(t, err)

	_, err = repo.Get("unknown", "k")
	assert.Error(t, err)
}

func TestPurgeAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	now := time.Now()
	longExpired := now.Add(-48 * time.Hour).Unix()
	recentlyExpired := now.Add(-time.Hour).Unix()
	fresh := now.Add(time.Hour).Unix()

	for _, row := range []struct {
		table, key string
		expires    int64
	}{
		{TablePriceHistory, "A", longExpired},
		{TablePriceHistory, "B", recentlyExpired},
		{TablePriceHistory, "C", fresh},
		{TableSECTickers, "D", longExpired},
	} {
		_, err := db.Exec("INSERT INTO "+row.table+" (key, data, expires_at) VALUES (?, ?, ?)", row.key, `{}`, row.expires)
		require.NoError(t, err)
	}

	results, err := repo.PurgeAllExpired(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TablePriceHistory])
	assert.Equal(t, int64(1), results[TableSECTickers])

	// the recently expired row survives for stale fallback
	data, err := repo.Get(TablePriceHistory, "B")
	require.NoError(t, err)
	assert.NotNil(t, data)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, TableStats{Fresh: 1, Stale: 1}, stats[TablePriceHistory])
	assert.Equal(t, TableStats{}, stats[TableSECTickers])

	results, err = repo.PurgeAllExpired(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results[TablePriceHistory])
}

func TestPurgeExpired_InvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := NewRepository(db).PurgeExpired("filings", time.Hour)
	assert.Error(t, err)
}
