package history

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD (UTC) or RFC3339. With endOfDay a plain date
// means the last instant of that day, so it can serve as an inclusive
// upper bound.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Second), nil
		}
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
}

// Range resolves the CLI date flags. last counts days back from now and
// cannot be combined with since or until.
func Range(since, until string, last int, now time.Time) (from, to time.Time, err error) {
	if last > 0 {
		if since != "" || until != "" {
			return from, to, fmt.Errorf("--last cannot be combined with --since or --until")
		}
		return truncateDay(now).AddDate(0, 0, -last), time.Time{}, nil
	}
	if last < 0 {
		return from, to, fmt.Errorf("--last must be positive: %d", last)
	}
	if since != "" {
		if from, err = ParseDate(since, false); err != nil {
			return from, to, err
		}
	}
	if until != "" {
		if to, err = ParseDate(until, true); err != nil {
			return from, to, err
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("--until %s is before --since %s", until, since)
	}
	return from, to, nil
}

// FormatDate renders a period date.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
