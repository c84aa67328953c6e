package provider

import (
	"context"
	"log"
	"time"

	"nodepulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// NodeProvider fetches one node-count snapshot from an upstream crawler.
type NodeProvider interface {
	Name() string
	FetchNodeSnapshot(ctx context.Context) (*domain.Snapshot, error)
}

// QuoteProvider fetches one spot quote for a tracked symbol.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error)
}

// NodeChain tries an ordered list of node providers. The first provider
// returning a well-formed snapshot wins; timeout, transport failure,
// non-success status, and parse errors all advance to the next provider.
type NodeChain struct {
	tracer    trace.Tracer
	providers []NodeProvider
	timeout   time.Duration
}

func NewNodeChain(tracer trace.Tracer, timeout time.Duration, providers ...NodeProvider) *NodeChain {
	return &NodeChain{tracer: tracer, providers: providers, timeout: timeout}
}

func (c *NodeChain) FetchNodeSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	ctx, span := c.tracer.Start(ctx, "provider-chain.fetch-node-snapshot")
	defer span.End()

	for _, p := range c.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		snap, err := p.FetchNodeSnapshot(attemptCtx)
		cancel()
		if err != nil {
			log.Printf("node provider %s failed: %v", p.Name(), err)
			continue
		}
		return snap, nil
	}
	return nil, domain.ErrUnavailable
}

// QuoteChain is the price-side counterpart of NodeChain.
type QuoteChain struct {
	tracer    trace.Tracer
	providers []QuoteProvider
	timeout   time.Duration
}

func NewQuoteChain(tracer trace.Tracer, timeout time.Duration, providers ...QuoteProvider) *QuoteChain {
	return &QuoteChain{tracer: tracer, providers: providers, timeout: timeout}
}

func (c *QuoteChain) FetchQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	ctx, span := c.tracer.Start(ctx, "provider-chain.fetch-quote")
	defer span.End()

	for _, p := range c.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		quote, err := p.FetchQuote(attemptCtx, symbol)
		cancel()
		if err != nil {
			log.Printf("quote provider %s failed for %s: %v", p.Name(), symbol, err)
			continue
		}
		return quote, nil
	}
	return nil, domain.ErrUnavailable
}
