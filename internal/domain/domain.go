package domain

import (
	"errors"
	"time"
)

// Snapshot is one polled observation of Bitcoin network node statistics.
// Counts are non-negative and TorNodes never exceeds TotalNodes.
type Snapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalNodes  int       `json:"total_nodes"`
	TorNodes    int       `json:"tor_nodes"`
	ActiveNodes int       `json:"active_nodes"`
}

// TorPercent returns the share of Tor-only nodes in [0,100].
func (s Snapshot) TorPercent() float64 {
	if s.TotalNodes == 0 {
		return 0
	}
	return float64(s.TorNodes) / float64(s.TotalNodes) * 100
}

// PriceQuote is a short-lived spot quote for one asset.
type PriceQuote struct {
	Symbol       string  `json:"symbol"`
	PriceUSD     float64 `json:"price_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
	FetchedUnix  int64   `json:"fetched_unix"`
}

// Classification is the directional call derived from network growth,
// mirrored identically to every tracked asset.
type Classification string

const (
	SignalBuy      Classification = "BUY"
	SignalSell     Classification = "SELL"
	SignalSideways Classification = "SIDEWAYS"
)

// TorBias is the privacy-node trend reading. A rising Tor share reads
// bearish, a falling share bullish.
type TorBias string

const (
	BiasBullish TorBias = "BULLISH"
	BiasBearish TorBias = "BEARISH"
	BiasNeutral TorBias = "NEUTRAL"
)

// SignalRecord is the per-asset output of one refresh cycle.
type SignalRecord struct {
	Symbol       string         `json:"symbol"`
	Signal       Classification `json:"signal"`
	Magnitude    float64        `json:"magnitude"`
	PriceUSD     float64        `json:"price_usd"`
	Change24hPct float64        `json:"change_24h_pct"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ErrUnavailable is returned when every provider in a chain has failed.
// Callers treat it as recoverable and keep serving the last good data.
var ErrUnavailable = errors.New("all providers unavailable")
