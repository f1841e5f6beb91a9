package exchange

import (
	"strings"
)

// quoteAssets are matched longest first when a venue concatenates symbols.
var quoteAssets = []string{
	"USDT", "USDC", "BUSD", "HUSD", "TUSD", "USDD",
	"BTC", "ETH", "HT", "TRX", "EUR", "USD",
}

// SplitDash splits "BTC-USDT" into base and quote.
func SplitDash(symbol string) (base, quote string, ok bool) {
	base, quote, ok = strings.Cut(strings.ToUpper(strings.TrimSpace(symbol)), "-")
	if !ok || base == "" || quote == "" {
		return "", "", false
	}
	return base, quote, true
}

// SplitSuffix splits "BTCUSDT" into base and quote using known quote assets.
func SplitSuffix(symbol string) (base, quote string, ok bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	best := ""
	for _, q := range quoteAssets {
		if len(q) > len(best) && len(symbol) > len(q) && strings.HasSuffix(symbol, q) {
			best = q
		}
	}
	if best == "" {
		return "", "", false
	}
	return strings.TrimSuffix(symbol, best), best, true
}
