package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"nodepulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// State names the phases of one refresh cycle.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateCompute  State = "compute"
	StatePersist  State = "persist"
)

// NodeFetcher is satisfied by provider.NodeChain.
type NodeFetcher interface {
	FetchNodeSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

// QuoteFetcher is satisfied by provider.QuoteChain.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error)
}

// SnapshotStore persists the bounded history. A nil store disables
// persistence entirely.
type SnapshotStore interface {
	LoadHistory(ctx context.Context, limit int) ([]domain.Snapshot, error)
	SaveHistory(ctx context.Context, snapshots []domain.Snapshot, capacity int) error
}

// Config carries the tunable knobs of the signal computation.
type Config struct {
	TorTrendEpsilon  float64
	NetworkSignalTau float64
	NodeCacheTTL     time.Duration
	QuoteCacheTTL    time.Duration
	HistoryCapacity  int
}

type cachedQuote struct {
	quote     *domain.PriceQuote
	fetchedAt time.Time
}

// Engine owns all mutable refresh state: the history window, the node and
// quote caches, last-fetch timestamps, and the last good output records.
// One Engine value is constructed per process; a mutex serializes refresh
// cycles so appends stay chronologically ordered.
type Engine struct {
	tracer trace.Tracer
	cfg    Config
	nodes  NodeFetcher
	quotes QuoteFetcher
	store  SnapshotStore

	mu            sync.Mutex
	state         State
	history       *HistoryWindow
	cachedNode    *domain.Snapshot
	nodeFetchedAt time.Time
	quoteCache    map[string]cachedQuote
	lastMaster    domain.Classification
	lastMagnitude float64
	lastRecords   []domain.SignalRecord
	lastRefresh   time.Time
}

func New(tracer trace.Tracer, cfg Config, nodes NodeFetcher, quotes QuoteFetcher, store SnapshotStore) *Engine {
	return &Engine{
		tracer:     tracer,
		cfg:        cfg,
		nodes:      nodes,
		quotes:     quotes,
		store:      store,
		state:      StateIdle,
		history:    NewHistoryWindow(cfg.HistoryCapacity),
		quoteCache: make(map[string]cachedQuote),
		lastMaster: domain.SignalSideways,
	}
}

// LoadHistory restores the persisted window at startup. A missing or
// corrupt store is an empty history, never an error.
func (e *Engine) LoadHistory(ctx context.Context) {
	if e.store == nil {
		return
	}
	ctx, span := e.tracer.Start(ctx, "engine.load-history")
	defer span.End()

	snapshots, err := e.store.LoadHistory(ctx, e.history.Capacity())
	if err != nil {
		log.Printf("snapshot history load failed, starting empty: %v", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range snapshots {
		e.history.Append(s)
	}
	log.Printf("loaded %d snapshots from store", e.history.Size())
}

// Refresh runs one full cycle: fetch, append, compute, persist. On total
// provider failure the last good records are retained and re-served; the
// caller never sees an error, only stale output.
func (e *Engine) Refresh(ctx context.Context) []domain.SignalRecord {
	ctx, span := e.tracer.Start(ctx, "engine.refresh")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateFetching
	defer func() { e.state = StateIdle }()

	snap, cached, err := e.fetchNodeSnapshotLocked(ctx)
	if err != nil {
		log.Printf("refresh: node snapshot unavailable, serving stale records: %v", err)
		return e.copyRecordsLocked()
	}

	// A cache hit replays the last fetched snapshot; appending it again
	// would duplicate the tail and flatten the trend to zero.
	if !cached {
		e.history.Append(*snap)
	}

	e.state = StateCompute
	cur, _ := e.history.Latest()
	var prevPtr *domain.Snapshot
	if prev, ok := e.history.Previous(); ok {
		prevPtr = &prev
	}

	torValue, torBias := TorTrend(&cur, prevPtr, e.cfg.TorTrendEpsilon)
	netValue, netClass := NetworkSignal(&cur, prevPtr, e.cfg.NetworkSignalTau)
	master := Combine(netClass, torBias)

	magnitude := netValue
	if netClass == domain.SignalSideways && master != domain.SignalSideways {
		magnitude = torValue
	}

	quotes := e.fetchQuotesLocked(ctx)
	now := time.Now().UTC()

	e.lastMaster = master
	e.lastMagnitude = magnitude
	e.lastRecords = BuildRecords(master, magnitude, quotes, now)
	e.lastRefresh = now

	e.state = StatePersist
	if e.store != nil {
		if err := e.store.SaveHistory(ctx, e.history.Entries(), e.history.Capacity()); err != nil {
			log.Printf("snapshot history save failed: %v", err)
		}
	}

	return e.copyRecordsLocked()
}

// RefreshQuotes updates only the price side of the output records,
// keeping the current master classification. Used by the fast poll tier.
func (e *Engine) RefreshQuotes(ctx context.Context) []domain.SignalRecord {
	ctx, span := e.tracer.Start(ctx, "engine.refresh-quotes")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lastRecords) == 0 {
		return nil
	}

	quotes := e.fetchQuotesLocked(ctx)
	e.lastRecords = BuildRecords(e.lastMaster, e.lastMagnitude, quotes, time.Now().UTC())
	return e.copyRecordsLocked()
}

// Records returns the last good output records.
func (e *Engine) Records() []domain.SignalRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyRecordsLocked()
}

// History returns a copy of the snapshot window, oldest first.
func (e *Engine) History() []domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Entries()
}

// LatestSnapshot returns the newest node snapshot, if any.
func (e *Engine) LatestSnapshot() (domain.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Latest()
}

// Quote returns a quote for one symbol, served from the engine cache
// when fresh.
func (e *Engine) Quote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fetchQuoteLocked(ctx, symbol)
}

// State reports the current refresh phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastRefresh reports when the last successful cycle completed.
func (e *Engine) LastRefresh() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRefresh
}

// fetchNodeSnapshotLocked serves the cached snapshot while it is fresh,
// otherwise walks the provider chain. The cached flag tells the caller
// whether the snapshot is a replay of the previous fetch; only a genuine
// fetch creates a new history entry. Caller holds e.mu.
func (e *Engine) fetchNodeSnapshotLocked(ctx context.Context) (*domain.Snapshot, bool, error) {
	if e.cachedNode != nil && time.Since(e.nodeFetchedAt) < e.cfg.NodeCacheTTL {
		return e.cachedNode, true, nil
	}

	snap, err := e.nodes.FetchNodeSnapshot(ctx)
	if err != nil {
		return nil, false, err
	}

	e.cachedNode = snap
	e.nodeFetchedAt = time.Now()
	return snap, false, nil
}

// fetchQuoteLocked serves the cached quote while fresh. On provider
// exhaustion a stale cached quote is re-served as last known good state;
// with no cached value the error propagates. Caller holds e.mu.
func (e *Engine) fetchQuoteLocked(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	if entry, ok := e.quoteCache[symbol]; ok && time.Since(entry.fetchedAt) < e.cfg.QuoteCacheTTL {
		return entry.quote, nil
	}

	quote, err := e.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		if entry, ok := e.quoteCache[symbol]; ok {
			if errors.Is(err, domain.ErrUnavailable) {
				log.Printf("quote providers exhausted for %s, serving stale quote", symbol)
			}
			return entry.quote, nil
		}
		return nil, err
	}

	e.quoteCache[symbol] = cachedQuote{quote: quote, fetchedAt: time.Now()}
	return quote, nil
}

func (e *Engine) fetchQuotesLocked(ctx context.Context) map[string]*domain.PriceQuote {
	quotes := make(map[string]*domain.PriceQuote, len(domain.TrackedSymbols))
	for _, symbol := range domain.TrackedSymbols {
		q, err := e.fetchQuoteLocked(ctx, symbol)
		if err != nil {
			log.Printf("quote unavailable for %s: %v", symbol, err)
			continue
		}
		quotes[symbol] = q
	}
	return quotes
}

func (e *Engine) copyRecordsLocked() []domain.SignalRecord {
	out := make([]domain.SignalRecord, len(e.lastRecords))
	copy(out, e.lastRecords)
	return out
}
