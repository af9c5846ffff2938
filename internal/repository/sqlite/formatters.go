package sqlite

import (
	"time"
)

// FormatTimeForDB formats a time as RFC3339 with nanoseconds in UTC, which
// sorts lexically in time order
func FormatTimeForDB(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimeFromDB parses a time written by FormatTimeForDB
func ParseTimeFromDB(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// NullableInt64 converts an optional id to a driver value
func NullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
