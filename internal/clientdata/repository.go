// Package clientdata provides persistent caching for external API client responses.
// All data is stored as JSON blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TablePriceHistory = "price_history"
	TableSECTickers   = "sec_tickers"
)

// AllTables lists all tables in cache.db for cleanup operations.
var AllTables = []string{
	TablePriceHistory,
	TableSECTickers,
}

// validTables is a set for O(1) table name validation.
var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations for client data.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// validateTable ensures the table name is in our allowed list.
// Table names are interpolated into SQL, so nothing else may reach a query.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, data, expires_at) VALUES (?, ?, ?)", table)
	if _, err := r.db.Exec(query, key, string(jsonData), expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh returns data only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetIfFresh(table, key string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ? AND expires_at > ?", table)

	var data string
	err := r.db.QueryRow(query, key, time.Now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	return json.RawMessage(data), nil
}

// Get returns data regardless of expiration status.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(table, key string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ?", table)

	var data string
	err := r.db.QueryRow(query, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	return json.RawMessage(data), nil
}

// PurgeExpired removes rows that expired more than grace ago. Rows expired for less than
// grace are kept so clients can still fall back to them when an API call fails.
func (r *Repository) PurgeExpired(table string, grace time.Duration) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-grace).Unix()
	result, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// PurgeAllExpired runs PurgeExpired over every table and returns the rows deleted per table.
// It stops at the first failing table.
func (r *Repository) PurgeAllExpired(grace time.Duration) (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.PurgeExpired(table, grace)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}

// TableStats counts the entries of one cache table
type TableStats struct {
	Fresh int64 `json:"fresh"`
	Stale int64 `json:"stale"`
}

// Stats returns fresh and stale entry counts per table
func (r *Repository) Stats() (map[string]TableStats, error) {
	now := time.Now().Unix()
	stats := make(map[string]TableStats, len(AllTables))
	for _, table := range AllTables {
		var ts TableStats
		query := fmt.Sprintf(
			"SELECT COALESCE(SUM(expires_at > ?), 0), COALESCE(SUM(expires_at <= ?), 0) FROM %s", table)
		if err := r.db.QueryRow(query, now, now).Scan(&ts.Fresh, &ts.Stale); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = ts
	}
	return stats, nil
}
