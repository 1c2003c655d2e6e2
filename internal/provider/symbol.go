package provider

import "strings"

// Period is a history range accepted by all adapters.
type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1M  Period = "1mo"
	Period3M  Period = "3mo"
	Period6M  Period = "6mo"
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	DefaultPeriod     = Period1M
)

var periodDays = map[Period]int{
	Period1D: 1, Period5D: 5, Period1M: 30, Period3M: 90,
	Period6M: 180, Period1Y: 365, Period2Y: 730, Period5Y: 1825,
}

// ParsePeriod returns the period for s, or the default when s is empty or
// unrecognized.
func ParsePeriod(s string) Period {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodDays[p]; ok {
		return p
	}
	return DefaultPeriod
}

// Days is the approximate calendar length of the period.
func (p Period) Days() int {
	if d, ok := periodDays[p]; ok {
		return d
	}
	return periodDays[DefaultPeriod]
}

// NormalizeSymbol uppercases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether s looks like a ticker: non-empty, at most 12
// characters, uppercase letters and digits plus '.' and '-'.
func ValidSymbol(s string) bool {
	s = NormalizeSymbol(s)
	if s == "" || len(s) > 12 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}
