package utils

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDateWindow turns from/to query values (YYYY-MM-DD) into an inclusive
// UTC window spanning start-of-day on from to end-of-day on to. Missing
// values default to the trailing 7 days.
func ParseDateWindow(fromParam, toParam string) (time.Time, time.Time, error) {
	now := time.Now().UTC()

	fromDate := now.AddDate(0, 0, -7)
	if fromParam != "" {
		parsed, err := time.Parse(dateLayout, fromParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' date %q, expected YYYY-MM-DD", fromParam)
		}
		fromDate = parsed
	}

	toDate := now
	if toParam != "" {
		parsed, err := time.Parse(dateLayout, toParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' date %q, expected YYYY-MM-DD", toParam)
		}
		toDate = parsed
	}

	from := time.Date(fromDate.Year(), fromDate.Month(), fromDate.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(toDate.Year(), toDate.Month(), toDate.Day(), 23, 59, 59, 999999999, time.UTC)

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("'to' date precedes 'from' date")
	}
	return from, to, nil
}
