package testing

import (
	"time"

	"github.com/aristath/edgardiff/internal/domain"
)

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// NewFilingFixtures returns three consecutive quarterly filings of one filer, accepted after
// the close. The second and third are 13 weeks apart from their predecessor.
func NewFilingFixtures() []domain.FilingRecord {
	q1 := time.Date(2021, 2, 1, 17, 0, 0, 0, time.UTC)
	q2 := q1.AddDate(0, 0, 13*7)
	q3 := q2.AddDate(0, 0, 13*7)
	return []domain.FilingRecord{
		{
			CIK:          320193,
			CompanyName:  "ACME CORP",
			TickerSymbol: "ACME",
			DateFiled:    q1.Format("2006-01-02"),
			DateAccepted: q1,
			FileName:     "320193-2021-02-01.txt",
			PriceChange:  0.01,
			PriceChange2: Ptr(0.02),
		},
		{
			CIK:          320193,
			CompanyName:  "ACME CORP",
			TickerSymbol: "ACME",
			DateFiled:    q2.Format("2006-01-02"),
			DateAccepted: q2,
			FileName:     "320193-2021-05-03.txt",
			PriceChange:  -0.03,
			PriceChange2: Ptr(-0.01),
		},
		{
			CIK:          320193,
			CompanyName:  "ACME CORP",
			TickerSymbol: "ACME",
			DateFiled:    q3.Format("2006-01-02"),
			DateAccepted: q3,
			FileName:     "320193-2021-08-02.txt",
			PriceChange:  0.05,
		},
	}
}

// NewBarFixtures returns daily bars for the business days starting at from (inclusive).
// Each day opens at open and closes 1% higher; the next day opens at that close.
func NewBarFixtures(from time.Time, days int, open float64) []domain.DailyBar {
	var bars []domain.DailyBar
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for len(bars) < days {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			closePrice := open * 1.01
			bars = append(bars, domain.DailyBar{
				Date:  day,
				Open:  open,
				High:  closePrice,
				Low:   open,
				Close: closePrice,
			})
			open = closePrice
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}
