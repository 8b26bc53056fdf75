package payroll

import (
	"math"
	"strconv"
	"strings"
)

// Sanitize maps NaN and infinities to zero.
func Sanitize(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// ParseAmount reads a user-entered number. Anything that is not a finite number is zero.
func ParseAmount(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return Sanitize(value)
}

// maxCount bounds hand-entered counters so they stay representable on every platform.
const maxCount = math.MaxInt32

// ParseCount reads a user-entered count, truncating fractions. Negative or out of range
// values are zero.
func ParseCount(raw string) int {
	value := ParseAmount(raw)
	if value < 0 || value > maxCount {
		return 0
	}
	return int(value)
}
