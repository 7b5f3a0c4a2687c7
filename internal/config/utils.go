package config

import (
	"fmt"
	"strconv"
	"time"
)

// parseInterval parses interval notation ("30m", "12h", "7d", "2w") into a duration.
// Anything else is handed to time.ParseDuration, so "90s" or "1h30m" also work.
func parseInterval(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, fmt.Errorf("invalid interval format: %q", interval)
	}

	var unit time.Duration
	switch interval[len(interval)-1] {
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	}

	if unit == 0 {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return 0, fmt.Errorf("invalid interval: %q", interval)
		}
		if d <= 0 {
			return 0, fmt.Errorf("interval must be positive: %q", interval)
		}
		return d, nil
	}

	value, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid interval value: %q", interval)
	}
	if value <= 0 {
		return 0, fmt.Errorf("interval must be positive: %q", interval)
	}
	return time.Duration(value) * unit, nil
}

// ParseTimeout parses a request timeout. "0" (or "0s") disables the client-side timeout.
func ParseTimeout(value string) (time.Duration, error) {
	if value == "0" {
		return 0, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d == 0 {
		return 0, nil
	}
	return parseInterval(value)
}
