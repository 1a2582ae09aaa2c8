package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// ExpiryFrom returns the instant a ttl-bound record expires. A non-positive ttl
// yields the zero time, meaning the record never expires.
func ExpiryFrom(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// Expired reports whether expiresAt lies before now. The zero time never expires.
func Expired(now, expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return expiresAt.Before(now)
}
