package service

import (
	"context"
	"fmt"
	"time"

	"nodepulse/internal/cache"
	"nodepulse/internal/domain"
	"nodepulse/internal/engine"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	signalsCacheKey = "nodepulse:signals"
	signalsCacheTTL = 30 * time.Second
)

// SignalEngine is the read/refresh surface of the core engine.
type SignalEngine interface {
	Refresh(ctx context.Context) []domain.SignalRecord
	RefreshQuotes(ctx context.Context) []domain.SignalRecord
	Records() []domain.SignalRecord
	History() []domain.Snapshot
	LatestSnapshot() (domain.Snapshot, bool)
	Quote(ctx context.Context, symbol string) (*domain.PriceQuote, error)
	State() engine.State
	LastRefresh() time.Time
}

// NodeStats is the headline view of the latest snapshot: total, Tor and
// active node counts plus the Tor share.
type NodeStats struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalNodes  int       `json:"total_nodes"`
	TorNodes    int       `json:"tor_nodes"`
	ActiveNodes int       `json:"active_nodes"`
	TorPercent  float64   `json:"tor_percent"`
	HistorySize int       `json:"history_size"`
}

// PulseService is the serving facade over the engine: HTTP handlers, the
// Telegram bot, and the SSH dashboard all read through it. It adds a
// short-lived Redis cache in front of the signal records.
type PulseService struct {
	tracer trace.Tracer
	engine SignalEngine
	redis  *redis.Client
}

func NewPulseService(tracer trace.Tracer, eng SignalEngine, redisClient *redis.Client) *PulseService {
	return &PulseService{
		tracer: tracer,
		engine: eng,
		redis:  redisClient,
	}
}

// GetSignals returns the current per-asset signal records.
func (s *PulseService) GetSignals(ctx context.Context) []domain.SignalRecord {
	ctx, span := s.tracer.Start(ctx, "pulse-service.get-signals")
	defer span.End()

	var cached []domain.SignalRecord
	if cache.GetJSON(ctx, s.redis, signalsCacheKey, &cached) && len(cached) > 0 {
		return cached
	}

	records := s.engine.Records()
	if len(records) > 0 {
		cache.SetJSON(ctx, s.redis, signalsCacheKey, records, signalsCacheTTL)
	}
	return records
}

// GetSignal returns the record for one tracked symbol.
func (s *PulseService) GetSignal(ctx context.Context, symbol string) (*domain.SignalRecord, error) {
	ctx, span := s.tracer.Start(ctx, "pulse-service.get-signal")
	defer span.End()

	if !domain.IsTracked(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	for _, rec := range s.GetSignals(ctx) {
		if rec.Symbol == symbol {
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("no signal yet for %s", symbol)
}

// GetNodeStats returns the latest snapshot view, or false before the
// first successful fetch.
func (s *PulseService) GetNodeStats(ctx context.Context) (NodeStats, bool) {
	_, span := s.tracer.Start(ctx, "pulse-service.get-node-stats")
	defer span.End()

	snap, ok := s.engine.LatestSnapshot()
	if !ok {
		return NodeStats{}, false
	}
	return NodeStats{
		Timestamp:   snap.Timestamp,
		TotalNodes:  snap.TotalNodes,
		TorNodes:    snap.TorNodes,
		ActiveNodes: snap.ActiveNodes,
		TorPercent:  snap.TorPercent(),
		HistorySize: len(s.engine.History()),
	}, true
}

// GetHistory returns the snapshot window, oldest first, for charting.
func (s *PulseService) GetHistory(ctx context.Context) []domain.Snapshot {
	_, span := s.tracer.Start(ctx, "pulse-service.get-history")
	defer span.End()
	return s.engine.History()
}

// GetQuote returns a spot quote for one tracked symbol.
func (s *PulseService) GetQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	ctx, span := s.tracer.Start(ctx, "pulse-service.get-quote")
	defer span.End()

	if !domain.IsTracked(symbol) {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	return s.engine.Quote(ctx, symbol)
}

// TriggerRefresh runs one full refresh cycle and invalidates the record
// cache. The engine serializes concurrent triggers internally.
func (s *PulseService) TriggerRefresh(ctx context.Context) []domain.SignalRecord {
	ctx, span := s.tracer.Start(ctx, "pulse-service.trigger-refresh")
	defer span.End()

	records := s.engine.Refresh(ctx)
	if len(records) > 0 {
		cache.SetJSON(ctx, s.redis, signalsCacheKey, records, signalsCacheTTL)
	}
	return records
}

// RefreshQuotes updates the price side of the records (fast poll tier).
func (s *PulseService) RefreshQuotes(ctx context.Context) []domain.SignalRecord {
	ctx, span := s.tracer.Start(ctx, "pulse-service.refresh-quotes")
	defer span.End()

	records := s.engine.RefreshQuotes(ctx)
	if len(records) > 0 {
		cache.SetJSON(ctx, s.redis, signalsCacheKey, records, signalsCacheTTL)
	}
	return records
}

// State exposes the engine refresh phase for health reporting.
func (s *PulseService) State() engine.State {
	return s.engine.State()
}

// LastRefresh reports the completion time of the last successful cycle.
func (s *PulseService) LastRefresh() time.Time {
	return s.engine.LastRefresh()
}
