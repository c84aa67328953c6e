package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nodepulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceQuoteProvider is the fallback quote source. Binance returns
// numeric fields as strings, so everything goes through ParseFloat.
type BinanceQuoteProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewBinanceQuoteProvider(tracer trace.Tracer) *BinanceQuoteProvider {
	return &BinanceQuoteProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: binanceBaseURL,
		tracer:  tracer,
	}
}

func (p *BinanceQuoteProvider) Name() string { return "binance" }

func (p *BinanceQuoteProvider) FetchQuote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	_, span := p.tracer.Start(ctx, "binance.fetch-quote")
	defer span.End()

	pair, ok := domain.BinancePair[symbol]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", p.baseURL, pair)

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
		return nil, fmt.Errorf("binance API error %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse binance ticker: %w", err)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(raw.LastPrice), 64)
	if err != nil {
		return nil, fmt.Errorf("parse binance lastPrice %q: %w", raw.LastPrice, err)
	}
	change, err := strconv.ParseFloat(strings.TrimSpace(raw.PriceChangePercent), 64)
	if err != nil {
		return nil, fmt.Errorf("parse binance priceChangePercent %q: %w", raw.PriceChangePercent, err)
	}

	return &domain.PriceQuote{
		Symbol:       symbol,
		PriceUSD:     price,
		Change24hPct: change,
		FetchedUnix:  time.Now().Unix(),
	}, nil
}
