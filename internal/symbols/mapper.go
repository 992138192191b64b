package symbols

import (
	"strings"

	"krakenflow/models"
)

// ToRest renders a websocket pair as the REST pair parameter, e.g. ETH/USD ->
// ETHUSD.
func ToRest(pair models.CurrencyPair) string {
	return pair.RestSymbol()
}

// Normalize converts exchange-specific symbol formats to a single form:
// uppercase, no separators, BTC instead of XBT. Kraken symbols may be
// websocket names (XBT/USD), REST altnames (XBTUSD) or legacy REST keys
// (XXBTZUSD).
func Normalize(exchange, sym string) string {
	sym = strings.ToUpper(strings.TrimSpace(sym))
	switch strings.ToLower(exchange) {
	case "kraken":
		if base, quote, ok := strings.Cut(sym, "/"); ok {
			sym = xbt(base) + quote
			break
		}
		sym = xbt(stripLegacy(sym))
	case "coinbase":
		sym = strings.ReplaceAll(sym, "-", "")
	case "okx":
		sym = strings.TrimSuffix(sym, "-SWAP")
		sym = strings.ReplaceAll(sym, "-", "")
	default:
		// others already use the desired format
	}
	return sym
}

// stripLegacy drops the X/Z asset class prefixes of 8 character REST keys,
// XXBTZUSD -> XBTUSD.
func stripLegacy(sym string) string {
	if len(sym) != 8 || sym[0] != 'X' {
		return sym
	}
	if q := sym[4]; q != 'Z' && q != 'X' {
		return sym
	}
	return sym[1:4] + sym[5:]
}

func xbt(sym string) string {
	return strings.ReplaceAll(sym, "XBT", "BTC")
}

// PathSegment renders a pair for storage keys, e.g. XBT/USD -> btc_usd.
func PathSegment(pair string) string {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok {
		return strings.ToLower(Normalize("kraken", pair))
	}
	return strings.ToLower(xbt(strings.ToUpper(base)) + "_" + quote)
}
