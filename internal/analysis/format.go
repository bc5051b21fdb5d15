package analysis

import (
	"fmt"
	"math"
	"strconv"
)

// FormatRevenue abbreviates a currency amount: $X.XXB, $XM, or the literal
// dollar figure below a million.
func FormatRevenue(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, a/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%s$%.0fM", sign, a/1e6)
	default:
		return sign + "$" + strconv.FormatFloat(a, 'f', -1, 64)
	}
}

// FormatEPS renders an EPS figure signed to two decimals
func FormatEPS(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

// FormatPercent renders a percentage with one decimal
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatPrice(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
