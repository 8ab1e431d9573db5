package xmlnode

import (
	"math"
	"strconv"
	"strings"
)

// coerce converts a raw value into int64, float64 or bool when the options
// allow it and the text is an exact match. Anything else is returned as is.
func coerce(s string, opts Options) any {
	if s == "" {
		return s
	}

	if opts.ParseNumbers {
		if v, ok := parseNumber(s); ok {
			return v
		}
	}

	if opts.ParseBooleans {
		switch strings.ToLower(s) {
		case "true":
			return true
		case "false":
			return false
		}
	}

	return s
}

func parseNumber(s string) (any, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}

	// ParseFloat also understands hex floats, "inf" and "nan"; those stay text.
	if strings.ContainsAny(s, "xXpP") {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	return f, true
}
