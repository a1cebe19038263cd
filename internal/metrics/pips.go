package metrics

import "strings"

// DefaultPipValuePerLot is the account-currency value of one pip for one
// standard lot when the user has not configured one.
const DefaultPipValuePerLot = 10.0

// PipMultiplier converts a raw price distance into pips for the given
// instrument family: metals move in 0.1 steps, JPY-quoted pairs in 0.01,
// everything else in 0.0001. The same model is used for P&L and for
// position sizing so the two never disagree.
func PipMultiplier(instrument string) float64 {
	symbol := normalizeSymbol(instrument)
	switch {
	case strings.HasPrefix(symbol, "XAU"), strings.HasPrefix(symbol, "XAG"):
		return 10
	case strings.HasSuffix(symbol, "JPY"):
		return 100
	default:
		return 10000
	}
}

// normalizeSymbol collapses "EUR/USD", "eur_usd" and "EURUSD" to one form.
func normalizeSymbol(instrument string) string {
	s := strings.ToUpper(strings.TrimSpace(instrument))
	s = strings.NewReplacer("/", "", "_", "", "-", "").Replace(s)
	return s
}
