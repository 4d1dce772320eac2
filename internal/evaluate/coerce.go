package evaluate

import (
	"fmt"
	"strconv"
	"strings"

	"newsdesk/internal/core"
)

// biasNumeric is the fixed lookup from bias label to scalar position.
var biasNumeric = map[string]float64{
	core.BiasFarLeft:     -1.0,
	core.BiasLeft:        -0.6,
	core.BiasCenterLeft:  -0.3,
	core.BiasNeutral:     0.0,
	core.BiasCenterRight: 0.3,
	core.BiasRight:       0.6,
	core.BiasFarRight:    1.0,
}

// BiasToNumeric maps a bias label to its numeric scale position.
// Unknown labels map to 0.0 (Neutral) rather than failing; the returned
// label is the canonical form actually mapped.
func BiasToNumeric(label string) (string, float64) {
	trimmed := strings.TrimSpace(label)
	for canonical, score := range biasNumeric {
		if strings.EqualFold(trimmed, canonical) {
			return canonical, score
		}
	}
	return core.BiasNeutral, 0.0
}

// CoerceScore coerces whatever the backend returned for a 0-10 score into
// a float. String values are stripped to digits and at most one decimal
// point before parsing. Magnitudes above 10 are divided by 10 once, which
// handles backends that emit "85" meaning "8.5". Unparseable values are
// an error; the caller decides whether that is fatal.
func CoerceScore(value any) (float64, error) {
	var parsed float64

	switch v := value.(type) {
	case float64:
		parsed = v
	case int:
		parsed = float64(v)
	case string:
		cleaned := stripNonNumeric(v)
		if cleaned == "" {
			return 0, fmt.Errorf("no numeric content in %q", v)
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as score: %w", v, err)
		}
		parsed = f
	case nil:
		return 0, fmt.Errorf("score is missing")
	default:
		return 0, fmt.Errorf("unsupported score type %T", value)
	}

	if parsed > 10 || parsed < -10 {
		parsed = parsed / 10
	}
	return Clamp(parsed, 0, 10), nil
}

// CoerceTrend coerces the trend score, defaulting to 0.0 on failure.
// Trend is advisory; the leniency keeps automated pipelines alive.
func CoerceTrend(value any) float64 {
	score, err := CoerceScore(value)
	if err != nil {
		return 0.0
	}
	return score
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stripNonNumeric removes everything except digits, a leading minus, and
// a single decimal point.
func stripNonNumeric(s string) string {
	var sb strings.Builder
	seenPoint := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' && !seenPoint:
			seenPoint = true
			sb.WriteRune(r)
		case r == '-' && i == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
