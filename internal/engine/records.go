package engine

import (
	"time"

	"nodepulse/internal/domain"
)

// BuildRecords projects the master classification and the latest quotes
// into one record per tracked asset. Every asset carries the identical
// master signal; assets without a quote keep zero price fields. Pure
// projection, no side effects.
func BuildRecords(master domain.Classification, magnitude float64, quotes map[string]*domain.PriceQuote, at time.Time) []domain.SignalRecord {
	records := make([]domain.SignalRecord, 0, len(domain.TrackedSymbols))
	for _, symbol := range domain.TrackedSymbols {
		rec := domain.SignalRecord{
			Symbol:    symbol,
			Signal:    master,
			Magnitude: magnitude,
			Timestamp: at,
		}
		if q, ok := quotes[symbol]; ok && q != nil {
			rec.PriceUSD = q.PriceUSD
			rec.Change24hPct = q.Change24hPct
		}
		records = append(records, rec)
	}
	return records
}
