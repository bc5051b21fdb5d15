package collector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newthinker/quarterly/internal/core"
)

// validSymbol matches tickers like AAPL, BRK.B, BF-B, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// NormalizeSymbol upper-cases and validates a ticker
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", core.WrapError(core.ErrSymbolInvalid, fmt.Errorf("symbol cannot be empty"))
	}
	if !validSymbol.MatchString(s) {
		return "", core.WrapError(core.ErrSymbolInvalid, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return s, nil
}
