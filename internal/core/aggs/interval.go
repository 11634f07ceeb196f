package aggs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	millisPerSecond int64 = 1000
	millisPerMinute int64 = 60 * millisPerSecond
	millisPerHour   int64 = 60 * millisPerMinute
	millisPerDay    int64 = 24 * millisPerHour
	millisPerWeek   int64 = 7 * millisPerDay
)

// ParseInterval parses a fixed interval literal into its millisecond
// length. Supports Go duration syntax (e.g. "500ms", "30s", "2h") plus
// "Xd" for days, which time.ParseDuration does not understand. The day
// form takes an unsigned integer count and nothing else.
func ParseInterval(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("interval must not be empty")
	}

	if len(s) > 1 && s[len(s)-1] == 'd' {
		digits := s[:len(s)-1]
		for i := 0; i < len(digits); i++ {
			if digits[i] < '0' || digits[i] > '9' {
				return 0, fmt.Errorf("invalid interval %q", s)
			}
		}
		days, err := strconv.Atoi(digits)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q: %w", s, err)
		}
		return int64(days) * millisPerDay, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("interval must not be negative, got %q", s)
	}
	return d.Milliseconds(), nil
}

// isUTC reports whether a time zone identifier is UTC. Only UTC spellings
// and zero fixed offsets qualify; named region zones are rejected even
// when their offset happens to be zero, since their rules can diverge.
func isUTC(tz string) bool {
	switch tz {
	case "UTC", "UCT", "Z", "Zulu", "GMT", "GMT0", "Greenwich", "Universal",
		"Etc/UTC", "Etc/UCT", "Etc/Zulu", "Etc/GMT", "Etc/GMT0",
		"Etc/GMT+0", "Etc/GMT-0", "Etc/Greenwich", "Etc/Universal":
		return true
	}
	return isZeroOffset(tz)
}

// isZeroOffset matches fixed-offset spellings of zero such as "+00:00",
// "-00:00", "+0000" and "+00".
func isZeroOffset(tz string) bool {
	if tz == "" || (tz[0] != '+' && tz[0] != '-') {
		return false
	}
	switch strings.ReplaceAll(tz[1:], ":", "") {
	case "00", "0000", "000000":
		return true
	}
	return false
}
