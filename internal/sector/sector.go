// Package sector maps ticker symbols to GICS-style sector names.
package sector

import "strings"

// Other is the bucket for symbols with no known sector
const Other = "Other"

var defaults = map[string][]string{
	"Technology": {
		"AAPL", "MSFT", "NVDA", "AVGO", "ORCL", "CRM", "ADBE", "AMD", "CSCO", "ACN",
		"INTC", "IBM", "QCOM", "TXN", "NOW", "INTU", "AMAT", "MU", "LRCX", "ADI",
		"KLAC", "SNPS", "CDNS", "PANW", "CRWD", "ANET", "MRVL", "PLTR", "SMCI", "DELL",
	},
	"Communication Services": {
		"GOOGL", "GOOG", "META", "NFLX", "DIS", "CMCSA", "T", "VZ", "TMUS", "CHTR",
		"EA", "TTWO", "WBD", "SPOT", "SNAP", "PINS",
	},
	"Consumer Discretionary": {
		"AMZN", "TSLA", "HD", "MCD", "NKE", "LOW", "SBUX", "BKNG", "TJX", "CMG",
		"ABNB", "GM", "F", "MAR", "ROST", "LULU", "ORLY", "AZO", "UBER", "DASH",
	},
	"Consumer Staples": {
		"WMT", "PG", "COST", "KO", "PEP", "PM", "MO", "MDLZ", "CL", "TGT",
		"KMB", "GIS", "KHC", "STZ", "KR",
	},
	"Health Care": {
		"LLY", "UNH", "JNJ", "ABBV", "MRK", "TMO", "ABT", "PFE", "DHR", "AMGN",
		"ISRG", "BMY", "GILD", "VRTX", "MDT", "CVS", "ELV", "CI", "REGN", "MRNA",
	},
	"Financials": {
		"BRK.B", "JPM", "V", "MA", "BAC", "WFC", "GS", "MS", "AXP", "C",
		"SCHW", "BLK", "SPGI", "PYPL", "COF", "USB", "PNC", "CB", "MMC", "COIN",
	},
	"Industrials": {
		"GE", "CAT", "RTX", "HON", "UNP", "BA", "LMT", "DE", "UPS", "ETN",
		"ADP", "NOC", "GD", "FDX", "MMM", "CSX", "WM", "EMR",
	},
	"Energy": {
		"XOM", "CVX", "COP", "SLB", "EOG", "MPC", "PSX", "OXY", "VLO", "HAL",
	},
	"Utilities": {
		"NEE", "SO", "DUK", "CEG", "AEP", "D", "SRE", "EXC",
	},
	"Real Estate": {
		"PLD", "AMT", "EQIX", "CCI", "SPG", "PSA", "O", "WELL",
	},
	"Materials": {
		"LIN", "SHW", "APD", "ECL", "FCX", "NEM", "DOW", "NUE",
	},
}

// Lookup resolves symbols against the built-in table plus overrides
type Lookup struct {
	table map[string]string
}

// New builds a lookup; overrides win over the built-in table
func New(overrides map[string]string) *Lookup {
	table := make(map[string]string)
	for name, symbols := range defaults {
		for _, s := range symbols {
			table[s] = name
		}
	}
	for s, name := range overrides {
		if name != "" {
			table[strings.ToUpper(s)] = name
		}
	}
	return &Lookup{table: table}
}

// Sector returns the sector for a symbol
func (l *Lookup) Sector(symbol string) (string, bool) {
	if l == nil {
		return "", false
	}
	name, ok := l.table[strings.ToUpper(symbol)]
	return name, ok
}

// Len returns the number of known symbols
func (l *Lookup) Len() int {
	return len(l.table)
}
