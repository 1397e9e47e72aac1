package timex

import (
	"errors"
	"time"
)

// ISOMillis is the layout agents and receipts use: UTC with millisecond
// precision and a literal Z, e.g. 2026-02-01T12:00:00.000Z.
const ISOMillis = "2006-01-02T15:04:05.000Z"

var ErrInvalidTimestamp = errors.New("timestamp must be valid ISO 8601")

// FormatISO renders t in UTC using ISOMillis.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOMillis)
}

// ParseISO accepts RFC 3339 timestamps with or without fractional seconds
// and with either Z or a numeric offset.
func ParseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t, nil
}
