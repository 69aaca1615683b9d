package formatting

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB"}

// ParseBytes parses a human-readable byte size such as "50MB" into a byte
// count using base-1024 units. A bare number is treated as bytes; unit
// matching is case-insensitive and a space before the unit is allowed.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	numEnd := len(s)
	for i, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			numEnd = i
			break
		}
	}

	value, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	unit := strings.ToUpper(strings.TrimSpace(s[numEnd:]))
	if unit == "" {
		return int64(value), nil
	}

	idx := slices.Index(units, unit)
	if idx == -1 {
		return 0, fmt.Errorf("unknown byte size unit: %q", unit)
	}

	return int64(value * math.Pow(1024, float64(idx))), nil
}

// FormatBytes renders a byte count as a human-readable base-1024 string
// with one decimal of precision.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}

	f := float64(n)
	i := int(math.Floor(math.Log(f) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}

	return strconv.FormatFloat(f/math.Pow(1024, float64(i)), 'f', 1, 64) + " " + units[i]
}
