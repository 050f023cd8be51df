package domain

import (
	"fmt"
	"math"
)

// DollarsToCents converts a dollar amount from the HTTP edge into the
// int64 cent representation the engine works in. Amounts with more
// than 2 decimal places are rejected rather than silently rounded.
func DollarsToCents(f float64) (int64, error) {
	// Scale by 1000 and round before the third-decimal check, so that
	// float artifacts (1.10*1000 = 1099.999...) don't trip it.
	scaled := math.Round(f * 1000)
	if math.Mod(scaled, 10) != 0 {
		return 0, fmt.Errorf("monetary values must have at most 2 decimal places")
	}

	return int64(math.Round(f * 100)), nil
}

// CentsToDollars converts an internal cent value back to dollars for
// responses and feed events.
func CentsToDollars(c int64) float64 {
	return float64(c) / 100.0
}
