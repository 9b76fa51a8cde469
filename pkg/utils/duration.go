package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned when a duration string cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

// durationUnits extends time.ParseDuration with day and week units.
var durationUnits = map[string]time.Duration{ //nolint:gochecknoglobals // -
	"w": 7 * 24 * time.Hour,
	"d": 24 * time.Hour,
	"h": time.Hour,
	"m": time.Minute,
	"s": time.Second,
}

// ParseDuration parses strings such as "2w", "1d12h" or "30m".
// Units larger than a second are accepted; zero or negative results are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}

	var total time.Duration

	for s != "" {
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}

		if i == 0 || i == len(s) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}

		value, err := strconv.ParseInt(s[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidDuration, err)
		}

		unit, ok := durationUnits[s[i:i+1]]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, s[i:i+1])
		}

		total += time.Duration(value) * unit
		s = s[i+1:]
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidDuration)
	}

	return total, nil
}
