package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nodepulse/internal/domain"
	"nodepulse/internal/engine"
	"nodepulse/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type stubEngine struct {
	records []domain.SignalRecord
	history []domain.Snapshot
	quote   *domain.PriceQuote
}

func (s *stubEngine) Refresh(ctx context.Context) []domain.SignalRecord       { return s.records }
func (s *stubEngine) RefreshQuotes(ctx context.Context) []domain.SignalRecord { return s.records }
func (s *stubEngine) Records() []domain.SignalRecord                          { return s.records }
func (s *stubEngine) History() []domain.Snapshot                              { return s.history }

func (s *stubEngine) LatestSnapshot() (domain.Snapshot, bool) {
	if len(s.history) == 0 {
		return domain.Snapshot{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *stubEngine) Quote(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	if s.quote == nil {
		return nil, domain.ErrUnavailable
	}
	return s.quote, nil
}

func (s *stubEngine) State() engine.State { return engine.StateIdle }

func (s *stubEngine) LastRefresh() time.Time { return time.Time{} }

func newTestRouter(eng *stubEngine, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	pulse := service.NewPulseService(tracer, eng, nil)
	h := New(tracer, pulse, apiKey)

	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func doRequest(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(&stubEngine{}, "")

	w := doRequest(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["status"] != "healthy" || resp["state"] != "idle" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestGetSignalsEndpoint(t *testing.T) {
	eng := &stubEngine{records: []domain.SignalRecord{
		{Symbol: "BTC", Signal: domain.SignalBuy, PriceUSD: 97000},
	}}
	r := newTestRouter(eng, "")

	w := doRequest(r, http.MethodGet, "/api/signals", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Signals []domain.SignalRecord `json:"signals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Signals) != 1 || resp.Signals[0].Signal != domain.SignalBuy {
		t.Fatalf("unexpected signals: %+v", resp.Signals)
	}
}

func TestGetSignalUnsupportedSymbol(t *testing.T) {
	r := newTestRouter(&stubEngine{}, "")

	w := doRequest(r, http.MethodGet, "/api/signals/FAKE", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetNodeStatsBeforeFirstSnapshot(t *testing.T) {
	r := newTestRouter(&stubEngine{}, "")

	w := doRequest(r, http.MethodGet, "/api/nodes", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGetNodeStats(t *testing.T) {
	eng := &stubEngine{history: []domain.Snapshot{
		{Timestamp: time.Now().UTC(), TotalNodes: 2000, TorNodes: 500, ActiveNodes: 1800},
	}}
	r := newTestRouter(eng, "")

	w := doRequest(r, http.MethodGet, "/api/nodes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats service.NodeStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if stats.TorPercent != 25 {
		t.Fatalf("expected tor percent 25, got %f", stats.TorPercent)
	}
}

func TestGetHistoryEndpoint(t *testing.T) {
	eng := &stubEngine{history: []domain.Snapshot{
		{TotalNodes: 1000}, {TotalNodes: 1100},
	}}
	r := newTestRouter(eng, "")

	w := doRequest(r, http.MethodGet, "/api/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Count     int               `json:"count"`
		Snapshots []domain.Snapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Count != 2 || len(resp.Snapshots) != 2 {
		t.Fatalf("unexpected history: %+v", resp)
	}
}

func TestGetPriceBadGatewayWhenUnavailable(t *testing.T) {
	r := newTestRouter(&stubEngine{}, "")

	w := doRequest(r, http.MethodGet, "/api/prices/BTC", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestTriggerRefreshRequiresAPIKey(t *testing.T) {
	r := newTestRouter(&stubEngine{}, "secret")

	w := doRequest(r, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, "/api/refresh", map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong key, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, "/api/refresh", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}
}

func TestTriggerRefreshNoKeyConfigured(t *testing.T) {
	r := newTestRouter(&stubEngine{}, "")

	w := doRequest(r, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when auth disabled, got %d", w.Code)
	}
}
