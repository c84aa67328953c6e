package engine

import "nodepulse/internal/domain"

// Combine merges the network classification and the Tor bias into the
// master classification. A decisive network call wins outright; only a
// sideways network defers to the privacy-node bias.
func Combine(network domain.Classification, tor domain.TorBias) domain.Classification {
	if network == domain.SignalBuy || network == domain.SignalSell {
		return network
	}
	switch tor {
	case domain.BiasBullish:
		return domain.SignalBuy
	case domain.BiasBearish:
		return domain.SignalSell
	default:
		return domain.SignalSideways
	}
}
