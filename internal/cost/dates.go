package cost

import (
	"fmt"
	"time"
)

// NormalizeDate parses an upstream date into a UTC calendar day.
// Billing APIs are inconsistent here: some return compact numeric
// codes (20260215), some ISO dates, some full RFC3339 timestamps with
// an offset. Everything collapses onto midnight UTC of the civil date
// so that series arithmetic never crosses a timezone boundary.
func NormalizeDate(raw string) (time.Time, error) {
	if len(raw) == 8 && isDigits(raw) {
		t, err := time.ParseInLocation("20060102", raw, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing compact date %q: %w", raw, err)
		}
		return t, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date representation %q", raw)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Day truncates t to midnight UTC of its civil date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
