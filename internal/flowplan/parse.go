package flowplan

import (
	"math"
	"strconv"
	"strings"
)

// ParseConcentrations parses a comma-separated concentrations field into an
// ordered ppb sequence. Tokens are trimmed; empty tokens are skipped. Tokens
// that fail to parse, or parse to a non-finite or non-positive value, are
// excluded from the sequence and returned in dropped so callers can surface
// them instead of losing them silently.
func ParseConcentrations(text string) (values []float64, dropped []string) {
	for _, raw := range strings.Split(text, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			dropped = append(dropped, tok)
			continue
		}
		values = append(values, v)
	}
	return values, dropped
}

// FilterConcentrations applies the same acceptance rule to an already numeric
// sequence, reporting rejected values as formatted tokens.
func FilterConcentrations(in []float64) (values []float64, dropped []string) {
	for _, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			dropped = append(dropped, strconv.FormatFloat(v, 'g', -1, 64))
			continue
		}
		values = append(values, v)
	}
	return values, dropped
}
