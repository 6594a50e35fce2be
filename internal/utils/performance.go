// Package utils holds small timing helpers shared by the pipeline and the store.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Timer measures how long a named operation takes
type Timer struct {
	start time.Time
	name  string
	slow  time.Duration
	log   zerolog.Logger
}

// NewTimer starts a timer. Operations running longer than slow are logged at warn level;
// zero disables the warning.
func NewTimer(name string, slow time.Duration, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		slow:  slow,
		log:   log,
	}
}

// Stop returns the elapsed time and logs it
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	if t.slow > 0 && duration > t.slow {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Dur("threshold", t.slow).
			Msg("Slow operation detected")
	}

	return duration
}

// MeasureDBQuery measures database query performance
func MeasureDBQuery(queryName string, log zerolog.Logger) func(rows int64) {
	start := time.Now()

	return func(rows int64) {
		duration := time.Since(start)

		log.Debug().
			Str("query", queryName).
			Dur("duration_ms", duration).
			Int64("rows", rows).
			Msg("Database query completed")

		if duration > 5*time.Second {
			log.Warn().
				Str("query", queryName).
				Dur("duration", duration).
				Int64("rows", rows).
				Msg("Slow database query detected")
		}
	}
}
