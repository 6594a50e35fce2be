// Package differences pairs consecutive filings of the same filer and records the sentences
// each filing introduced over its predecessor.
package differences

import (
	"math"
	"time"

	"github.com/aristath/edgardiff/internal/domain"
)

// WholeWeeks returns the number of complete weeks from a to b, measured on the wall clock of
// loc so a daylight saving shift in between does not cost an hour. A nil loc means UTC.
func WholeWeeks(a, b time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	hours := wallClock(b, loc).Sub(wallClock(a, loc)).Hours()
	days := int(math.Floor(hours / 24))
	if days < 0 {
		return -((-days + 6) / 7)
	}
	return days / 7
}

// wallClock re-reads the local date and time of t in loc as if it were UTC
func wallClock(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, t.Nanosecond(), time.UTC)
}

// Pair walks records ordered by (cik, date_accepted) and pairs each record with the one
// before it when both belong to the same filer and the whole-week gap between their accepted
// timestamps, read in loc, lies in [minWeeks, maxWeeks].
func Pair(records []domain.FilingRecord, minWeeks, maxWeeks int, loc *time.Location) []domain.DiffPair {
	var pairs []domain.DiffPair
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if prev.CIK != cur.CIK {
			continue
		}
		weeks := WholeWeeks(prev.DateAccepted, cur.DateAccepted, loc)
		if weeks < minWeeks || weeks > maxWeeks {
			continue
		}
		pairs = append(pairs, domain.DiffPair{
			CurrentID:    cur.ID,
			CurrentFile:  cur.FileName,
			PreviousID:   prev.ID,
			PreviousFile: prev.FileName,
		})
	}
	return pairs
}
