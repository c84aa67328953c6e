package engine

import "nodepulse/internal/domain"

// TorTrend computes the relative change of the Tor node share between two
// snapshots. A rising share classifies BEARISH, a falling share BULLISH.
// With a missing previous snapshot it returns (0, NEUTRAL) rather than
// failing; epsilon is the configured neutrality band.
func TorTrend(cur, prev *domain.Snapshot, epsilon float64) (float64, domain.TorBias) {
	if cur == nil || prev == nil {
		return 0, domain.BiasNeutral
	}

	curPct := cur.TorPercent()
	prevPct := prev.TorPercent()

	if prevPct == 0 {
		return 0, domain.BiasNeutral
	}

	trend := (curPct - prevPct) / prevPct
	switch {
	case trend > epsilon:
		return trend, domain.BiasBearish
	case trend < -epsilon:
		return trend, domain.BiasBullish
	default:
		return trend, domain.BiasNeutral
	}
}

// NetworkSignal computes active_ratio * growth between two snapshots and
// classifies it against the configured tau band. With a missing previous
// snapshot it returns (0, SIDEWAYS) rather than failing.
func NetworkSignal(cur, prev *domain.Snapshot, tau float64) (float64, domain.Classification) {
	if cur == nil || prev == nil {
		return 0, domain.SignalSideways
	}

	growth := 0.0
	if prev.TotalNodes != 0 {
		growth = float64(cur.TotalNodes-prev.TotalNodes) / float64(prev.TotalNodes)
	}

	activeRatio := 0.0
	if cur.TotalNodes != 0 {
		activeRatio = float64(cur.ActiveNodes) / float64(cur.TotalNodes)
	}

	value := activeRatio * growth
	switch {
	case value > tau:
		return value, domain.SignalBuy
	case value < -tau:
		return value, domain.SignalSell
	default:
		return value, domain.SignalSideways
	}
}
