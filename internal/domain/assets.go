package domain

// CoinGeckoID maps internal symbols to CoinGecko API identifiers.
var CoinGeckoID = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"XRP":  "ripple",
	"ADA":  "cardano",
	"DOGE": "dogecoin",
	"DOT":  "polkadot",
	"LINK": "chainlink",
}

// CoinGeckoIDToSymbol is the reverse mapping.
var CoinGeckoIDToSymbol map[string]string

func init() {
	CoinGeckoIDToSymbol = make(map[string]string, len(CoinGeckoID))
	for sym, id := range CoinGeckoID {
		CoinGeckoIDToSymbol[id] = sym
	}
}

// BinancePair maps internal symbols to Binance USDT ticker pairs,
// used by the fallback quote provider.
var BinancePair = map[string]string{
	"BTC":  "BTCUSDT",
	"ETH":  "ETHUSDT",
	"SOL":  "SOLUSDT",
	"XRP":  "XRPUSDT",
	"ADA":  "ADAUSDT",
	"DOGE": "DOGEUSDT",
	"DOT":  "DOTUSDT",
	"LINK": "LINKUSDT",
}

// TrackedSymbols lists every asset that receives the master signal.
// The node-derived signal is computed once and mirrored across all of them.
var TrackedSymbols = []string{
	"BTC", "ETH", "SOL", "XRP", "ADA", "DOGE", "DOT", "LINK",
}

// IsTracked reports whether symbol is one of the tracked assets.
func IsTracked(symbol string) bool {
	_, ok := CoinGeckoID[symbol]
	return ok
}
