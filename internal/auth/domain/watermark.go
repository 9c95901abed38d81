package domain

import (
	"strconv"
	"strings"
)

// CompareWatermarks orders two history watermarks. Gmail history ids are
// decimal strings, so values that parse as integers compare numerically;
// anything else falls back to length-then-lexical order, which matches
// numeric order for unpadded digit strings of any size. The empty string
// sorts before every other value.
func CompareWatermarks(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	an, aErr := strconv.ParseUint(a, 10, 64)
	bn, bErr := strconv.ParseUint(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// MaxWatermark returns the greatest of the given watermarks, or "" if none.
func MaxWatermark(values ...string) string {
	var best string
	for _, v := range values {
		if CompareWatermarks(v, best) > 0 {
			best = v
		}
	}
	return best
}
