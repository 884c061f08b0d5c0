// File: internal/sensor/parse.go
package sensor

import (
	"strconv"
	"strings"
)

// parseHealthPct interprets OCR text from the health bar. Understood forms:
// "73%", "730/1000", "73". OCR noise around the digits is tolerated.
func parseHealthPct(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}

	if cur, max, ok := splitFraction(s); ok {
		if max <= 0 {
			return 0, false
		}
		return 100 * cur / max, true
	}

	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

func splitFraction(s string) (cur, max float64, ok bool) {
	i := strings.IndexByte(s, '/')
	if i < 0 {
		return 0, 0, false
	}
	cur, err1 := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
	max, err2 := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return cur, max, true
}

// parseDistance interprets the target-distance readout: "12.5m", "12.5 m"
// or a bare number. Negative readings are OCR garbage.
func parseDistance(text string) (float64, bool) {
	s := strings.TrimSpace(strings.ToLower(text))
	s = strings.TrimSuffix(s, "m")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
