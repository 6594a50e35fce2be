// Package filings persists filing records and serves them over HTTP.
package filings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/edgardiff/internal/database"
	"github.com/aristath/edgardiff/internal/domain"
	"github.com/aristath/edgardiff/internal/utils"
	"github.com/rs/zerolog"
)

// filingsColumns is the list of columns for the filings table
// Used to avoid SELECT * so scanRecord stays in step with the schema
const filingsColumns = `id, cik, company_name, ticker_symbol, url, date_filed, date_accepted,
price_change, price_change2, file_name, difference`

// Timestamps are stored as UTC RFC3339 so text order is chronological order
const acceptedLayout = time.RFC3339

// Counts summarises the store
type Counts struct {
	Total          int `json:"total"`
	WithDifference int `json:"with_difference"`
	Labeled        int `json:"labeled"` // difference and price_change2 both set
}

// Repository handles filing database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new filing repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "filings").Logger(),
	}
}

// Insert stores a new record and returns its generated id
func (r *Repository) Insert(ctx context.Context, rec *domain.FilingRecord) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO filings (cik, company_name, ticker_symbol, url, date_filed, date_accepted,
			price_change, price_change2, file_name, difference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CIK,
		rec.CompanyName,
		rec.TickerSymbol,
		rec.URL,
		rec.DateFiled,
		rec.DateAccepted.UTC().Format(acceptedLayout),
		rec.PriceChange,
		nullFloat(rec.PriceChange2),
		rec.FileName,
		nullString(rec.Difference),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert filing for CIK %d: %w", rec.CIK, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted filing id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// Truncate removes every record and resets id generation
func (r *Repository) Truncate(ctx context.Context) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM filings"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = 'filings'")
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to truncate filings: %w", err)
	}
	r.log.Info().Msg("Truncated filings")
	return nil
}

// ListPendingDifferences returns records without a difference, ordered by (cik, date_accepted)
func (r *Repository) ListPendingDifferences(ctx context.Context) ([]domain.FilingRecord, error) {
	return r.list(ctx, "list_pending_differences", "SELECT "+filingsColumns+" FROM filings WHERE difference IS NULL ORDER BY cik, date_accepted")
}

// SetDifference records the new sentences for a filing
func (r *Repository) SetDifference(ctx context.Context, id int64, difference string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE filings SET difference = ? WHERE id = ?", difference, id)
	if err != nil {
		return fmt.Errorf("failed to set difference for filing %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for filing %d: %w", id, err)
	}
	if n != 1 {
		return fmt.Errorf("filing %d not found", id)
	}
	return nil
}

// GetByID returns a record, or nil if there is none
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.FilingRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+filingsColumns+" FROM filings WHERE id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filing %d: %w", id, err)
	}
	return rec, nil
}

// ListByCIK returns a filer's records, oldest first
func (r *Repository) ListByCIK(ctx context.Context, cik int64) ([]domain.FilingRecord, error) {
	return r.list(ctx, "list_by_cik", "SELECT "+filingsColumns+" FROM filings WHERE cik = ? ORDER BY date_accepted", cik)
}

// ListAll returns every record ordered by (cik, date_accepted)
func (r *Repository) ListAll(ctx context.Context) ([]domain.FilingRecord, error) {
	return r.list(ctx, "list_all", "SELECT "+filingsColumns+" FROM filings ORDER BY cik, date_accepted")
}

// ListLabeled returns records that carry both a difference and a second price change
func (r *Repository) ListLabeled(ctx context.Context) ([]domain.FilingRecord, error) {
	return r.list(ctx, "list_labeled", "SELECT "+filingsColumns+" FROM filings WHERE difference IS NOT NULL AND price_change2 IS NOT NULL ORDER BY id")
}

// Count returns record totals
func (r *Repository) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(difference),
			COALESCE(SUM(CASE WHEN difference IS NOT NULL AND price_change2 IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM filings`).Scan(&c.Total, &c.WithDifference, &c.Labeled)
	if err != nil {
		return c, fmt.Errorf("failed to count filings: %w", err)
	}
	return c, nil
}

func (r *Repository) list(ctx context.Context, name, query string, args ...interface{}) (records []domain.FilingRecord, err error) {
	done := utils.MeasureDBQuery(name, r.log)
	defer func() { done(int64(len(records))) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query filings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filing: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filings: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*domain.FilingRecord, error) {
	var (
		rec          domain.FilingRecord
		dateAccepted string
		priceChange2 sql.NullFloat64
		difference   sql.NullString
	)
	err := s.Scan(
		&rec.ID,
		&rec.CIK,
		&rec.CompanyName,
		&rec.TickerSymbol,
		&rec.URL,
		&rec.DateFiled,
		&dateAccepted,
		&rec.PriceChange,
		&priceChange2,
		&rec.FileName,
		&difference,
	)
	if err != nil {
		return nil, err
	}

	rec.DateAccepted, err = time.Parse(acceptedLayout, dateAccepted)
	if err != nil {
		return nil, fmt.Errorf("invalid date_accepted %q: %w", dateAccepted, err)
	}
	if priceChange2.Valid {
		v := priceChange2.Float64
		rec.PriceChange2 = &v
	}
	if difference.Valid {
		v := difference.String
		rec.Difference = &v
	}
	return &rec, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
