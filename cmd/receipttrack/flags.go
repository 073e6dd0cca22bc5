package main

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// parseDate accepts YYYY-MM-DD or full RFC 3339. An empty input parses to the
// zero time, which API filters treat as "no filter".
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

func intArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errors.Errorf("invalid %s %q", name, value)
	}
	return n, nil
}
