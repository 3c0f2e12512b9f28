// Package normalizer maps exchange-native ticker symbols to a single
// canonical form so prices from different venues can be compared.
package normalizer

import "strings"

// Canonical converts a venue-native symbol to its canonical form:
// uppercase with "_" and "-" separators removed. Examples:
// "BTC_USDT" -> "BTCUSDT", "BTC-USDT-SWAP" -> "BTCUSDTSWAP",
// "btcusdt" -> "BTCUSDT". Unknown venues fall through to the same
// transform; the venue argument exists so venue-specific overrides can
// be added without touching call sites.
func Canonical(venue, symbol string) string {
	s := strings.ReplaceAll(symbol, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToUpper(s)
}

// BaseToken strips a trailing "USDT" quote from a canonical symbol,
// producing the base-only key used for coin-metadata lookups
// (deposit/withdraw status, existence probes).
func BaseToken(symbol string) string {
	s := strings.ToUpper(symbol)
	if strings.HasSuffix(s, "USDT") {
		return s[:len(s)-4]
	}
	return s
}
