package service

import (
	"context"
	"testing"
	"time"

	"nodepulse/internal/domain"
	"nodepulse/internal/engine"

	"go.opentelemetry.io/otel/trace"
)

type stubEngine struct {
	records      []domain.SignalRecord
	history      []domain.Snapshot
	quote        *domain.PriceQuote
	quoteErr     error
	refreshCalls int
}

func (s *stubEngine) Refresh(ctx context.Context) []domain.SignalRecord {
	s.refreshCalls++
	return s.records
}

func (s *stubEngine) RefreshQuotes(ctx context.Context) []domain.SignalRecord {
	return s.records
}

func (s *stubEngine) Records() []domain.SignalRecord { return s.records }

func (s *stubEngine) History() []domain.Snapshot { return s.history }

func (s *stubEngine) LatestSnapshot() (domain.Snapshot, bool) {
	if len(s.history) == 0 {
		return domain.Snapshot{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *stubEngine) Quote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	return s.quote, s.quoteErr
}

func (s *stubEngine) State() engine.State { return engine.StateIdle }

func (s *stubEngine) LastRefresh() time.Time { return time.Time{} }

func newTestService(eng SignalEngine) *PulseService {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	return NewPulseService(tracer, eng, nil)
}

func TestGetSignalsReadsEngine(t *testing.T) {
	eng := &stubEngine{records: []domain.SignalRecord{
		{Symbol: "BTC", Signal: domain.SignalBuy},
	}}
	svc := newTestService(eng)

	records := svc.GetSignals(context.Background())
	if len(records) != 1 || records[0].Symbol != "BTC" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGetSignalUnsupportedSymbol(t *testing.T) {
	svc := newTestService(&stubEngine{})
	if _, err := svc.GetSignal(context.Background(), "FAKE"); err == nil {
		t.Fatal("expected error for unsupported symbol")
	}
}

func TestGetSignalBeforeFirstRefresh(t *testing.T) {
	svc := newTestService(&stubEngine{})
	if _, err := svc.GetSignal(context.Background(), "BTC"); err == nil {
		t.Fatal("expected error before any records exist")
	}
}

func TestGetSignalFindsSymbol(t *testing.T) {
	eng := &stubEngine{records: []domain.SignalRecord{
		{Symbol: "BTC", Signal: domain.SignalSell},
		{Symbol: "ETH", Signal: domain.SignalSell},
	}}
	svc := newTestService(eng)

	rec, err := svc.GetSignal(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Symbol != "ETH" || rec.Signal != domain.SignalSell {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestGetNodeStats(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eng := &stubEngine{history: []domain.Snapshot{
		{Timestamp: now.Add(-time.Hour), TotalNodes: 1000, TorNodes: 100, ActiveNodes: 900},
		{Timestamp: now, TotalNodes: 2000, TorNodes: 500, ActiveNodes: 1800},
	}}
	svc := newTestService(eng)

	stats, ok := svc.GetNodeStats(context.Background())
	if !ok {
		t.Fatal("expected stats")
	}
	if stats.TotalNodes != 2000 || stats.TorPercent != 25 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.HistorySize != 2 {
		t.Fatalf("expected history size 2, got %d", stats.HistorySize)
	}
}

func TestGetNodeStatsEmptyHistory(t *testing.T) {
	svc := newTestService(&stubEngine{})
	if _, ok := svc.GetNodeStats(context.Background()); ok {
		t.Fatal("expected no stats before first fetch")
	}
}

func TestTriggerRefreshDelegates(t *testing.T) {
	eng := &stubEngine{records: []domain.SignalRecord{{Symbol: "BTC"}}}
	svc := newTestService(eng)

	svc.TriggerRefresh(context.Background())
	if eng.refreshCalls != 1 {
		t.Fatalf("expected one engine refresh, got %d", eng.refreshCalls)
	}
}
