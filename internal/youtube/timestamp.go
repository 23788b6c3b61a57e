package youtube

import (
	"strconv"
	"strings"
)

// ParseTimestamp converts "SS[.ms]", "MM:SS[.ms]" or "HH:MM:SS[.ms]" into
// seconds. Any non-numeric component yields 0 rather than an error; callers
// treat a zero offset/duration pair as a soft failure.
func ParseTimestamp(ts string) float64 {
	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0
	}
	var seconds float64
	scale := 1.0
	for i := len(parts) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return 0
		}
		seconds += v * scale
		scale *= 60
	}
	return seconds
}
