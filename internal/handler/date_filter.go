package handler

import (
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

func parseDateQuery(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// dateRange resolves optional startDate/endDate query params to a
// half-open interval, defaulting to the current day.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := parseDateQuery(r, "startDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateQuery(r, "endDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	now := time.Now()
	if start == nil {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		start = &day
	}
	var until time.Time
	if end == nil {
		until = start.AddDate(0, 0, 1)
	} else {
		until = end.AddDate(0, 0, 1)
	}
	return *start, until, nil
}
