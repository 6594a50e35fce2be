package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Daily bars for a closed window never change once the window is in the past.
	TTLPriceHistory = 7 * 24 * time.Hour
	// The CIK-to-ticker feed is republished daily.
	TTLSECTickers = 24 * time.Hour
)

// StaleRetention is how long expired entries are kept for stale fallback before cleanup
// removes them.
const StaleRetention = 30 * 24 * time.Hour
