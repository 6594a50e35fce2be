// Package domain provides core domain models and types shared by the pipeline stages.
package domain

import (
	"fmt"
	"time"
)

// IndexEntry is one data line of a quarterly filing index:
// CIK|Company Name|Form Type|Date Filed|Filename
type IndexEntry struct {
	CIK         int64  `json:"cik"`
	CompanyName string `json:"company_name"`
	FormType    string `json:"form_type"`
	DateFiled   string `json:"date_filed"`
	Path        string `json:"path"` // edgar/data/<cik>/<accession>.txt
}

// FilingRecord is one persisted filing with its price signal and, once the diff stage has
// run, the newly introduced sentences.
type FilingRecord struct {
	DateAccepted time.Time `json:"date_accepted"`
	CompanyName  string    `json:"company_name"`
	URL          string    `json:"url"`
	DateFiled    string    `json:"date_filed"`
	TickerSymbol string    `json:"ticker_symbol"`
	FileName     string    `json:"file_name"`
	PriceChange2 *float64  `json:"price_change2,omitempty"`
	Difference   *string   `json:"difference,omitempty"`
	ID           int64     `json:"id"`
	CIK          int64     `json:"cik"`
	PriceChange  float64   `json:"price_change"`
}

// Correlation is the price reaction attributed to a filing.
// PriceChange is open to close of the next business day; PriceChange2 is next-day open to
// following-day open and is nil when the following day has no history.
type Correlation struct {
	PriceChange2 *float64
	PriceChange  float64
}

// DailyBar is one day of OHLC price history
type DailyBar struct {
	Date   time.Time `json:"date"` // midnight of the trading day
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DiffPair links a filing to the same filer's previous filing roughly one quarter earlier.
type DiffPair struct {
	CurrentFile  string
	PreviousFile string
	CurrentID    int64
	PreviousID   int64
}

// Period identifies one quarterly index
type Period struct {
	Year    int
	Quarter int // 1-4
}

// Next returns the following quarter
func (p Period) Next() Period {
	if p.Quarter >= 4 {
		return Period{Year: p.Year + 1, Quarter: 1}
	}
	return Period{Year: p.Year, Quarter: p.Quarter + 1}
}

// After reports whether p comes strictly after other
func (p Period) After(other Period) bool {
	if p.Year != other.Year {
		return p.Year > other.Year
	}
	return p.Quarter > other.Quarter
}

// String renders the period the way the index archive lays out its directories (2021QTR2).
func (p Period) String() string {
	return fmt.Sprintf("%dQTR%d", p.Year, p.Quarter)
}

// PeriodsBetween returns every period from start to end inclusive, oldest first.
// It returns nil when start is after end.
func PeriodsBetween(start, end Period) []Period {
	var periods []Period
	for p := start; !p.After(end); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}
