package shared

import "time"

// DateLayout is the wire format of ledger dates.
const DateLayout = "2006-01-02"

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD value.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, err
	}
	return DateOnly(t), nil
}
