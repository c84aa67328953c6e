package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nodepulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoQuoteProvider fetches spot quotes from the CoinGecko free API.
type CoinGeckoQuoteProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewCoinGeckoQuoteProvider creates a provider with built-in rate limiting.
// Rate limited to 8 requests per minute (one token every 7.5 seconds).
func NewCoinGeckoQuoteProvider(tracer trace.Tracer) *CoinGeckoQuoteProvider {
	return &CoinGeckoQuoteProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: coingeckoBaseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
	}
}

func (p *CoinGeckoQuoteProvider) Name() string { return "coingecko" }

func (p *CoinGeckoQuoteProvider) FetchQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-quote")
	defer span.End()

	cgID, ok := domain.CoinGeckoID[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		p.baseURL, cgID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body))
	}

	// Response shape: {"bitcoin": {"usd": 97000, "usd_24h_change": 2.34}}
	var raw map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse coingecko quote: %w", err)
	}

	data, ok := raw[cgID]
	if !ok {
		return nil, fmt.Errorf("coingecko quote missing for %s", cgID)
	}

	return &domain.PriceQuote{
		Symbol:       symbol,
		PriceUSD:     data["usd"],
		Change24hPct: data["usd_24h_change"],
		FetchedUnix:  time.Now().Unix(),
	}, nil
}
