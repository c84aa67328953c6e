package job

import (
	"context"
	"log"
	"time"

	"nodepulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// RefreshPoller runs background goroutines that periodically refresh
// node snapshots, quotes, and signals.
type RefreshPoller struct {
	tracer        trace.Tracer
	refresher     SignalRefresher
	nodeInterval  time.Duration
	quoteInterval time.Duration
}

type SignalRefresher interface {
	TriggerRefresh(ctx context.Context) []domain.SignalRecord
	RefreshQuotes(ctx context.Context) []domain.SignalRecord
}

func NewRefreshPoller(tracer trace.Tracer, refresher SignalRefresher, nodePollSecs, quotePollSecs int) *RefreshPoller {
	return &RefreshPoller{
		tracer:        tracer,
		refresher:     refresher,
		nodeInterval:  time.Duration(nodePollSecs) * time.Second,
		quoteInterval: time.Duration(quotePollSecs) * time.Second,
	}
}

// Start launches background polling goroutines. Blocks until ctx is cancelled.
func (p *RefreshPoller) Start(ctx context.Context) {
	log.Println("Refresh poller starting...")

	// Tier 1: full refresh cycle (nodes + quotes + signals) every nodeInterval
	go p.pollLoop(ctx, "refresh-cycle", p.nodeInterval, 0, func(ctx context.Context) {
		p.refresher.TriggerRefresh(ctx)
	})

	// Tier 2: quote-only refresh every quoteInterval, staggered so the first
	// run does not race the initial full cycle
	go p.pollLoop(ctx, "quote-refresh", p.quoteInterval, p.quoteInterval, func(ctx context.Context) {
		p.refresher.RefreshQuotes(ctx)
	})

	<-ctx.Done()
	log.Println("Refresh poller stopped")
}

func (p *RefreshPoller) pollLoop(ctx context.Context, name string, interval, delay time.Duration, fn func(context.Context)) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	// Run immediately on start
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("poller %s stopped", name)
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
