package scenario

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// ParseWithFallback converts free text to a number.  Blank, unparseable or
// non-finite text yields fallback.  When floors are given the result is
// raised to the largest of them.  Thousands separators and a leading "$" are
// accepted.
func ParseWithFallback(text string, fallback float64, floors ...float64) float64 {
	v, ok := parseNumber(text)
	if !ok {
		v = fallback
	}
	for _, f := range floors {
		v = math.Max(v, f)
	}
	return v
}

func parseNumber(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}
