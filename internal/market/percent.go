package market

import "math"

// FormatPercentChange drops values that are not worth printing: nil,
// non-finite, or beyond ±999%.
func FormatPercentChange(pct *float64) *float64 {
	if pct == nil || math.IsNaN(*pct) || math.IsInf(*pct, 0) {
		return nil
	}
	if *pct > 999 || *pct < -999 {
		return nil
	}
	v := *pct
	return &v
}
