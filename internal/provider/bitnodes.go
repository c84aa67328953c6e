package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nodepulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// BitnodesProvider fetches the latest crawler snapshot from bitnodes.io
// (or a compatible mirror). Per-node records are arrays of the form
// [protocol_version, user_agent, connected_since, services, height,
// hostname, city, country, ...]; only the protocol version and hostname
// fields matter here.
type BitnodesProvider struct {
	client  *http.Client
	baseURL string
	name    string
	tracer  trace.Tracer
}

func NewBitnodesProvider(tracer trace.Tracer, name, baseURL string) *BitnodesProvider {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = "https://bitnodes.io"
	}
	return &BitnodesProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		name:    name,
		tracer:  tracer,
	}
}

func (p *BitnodesProvider) Name() string { return p.name }

func (p *BitnodesProvider) FetchNodeSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	_, span := p.tracer.Start(ctx, "bitnodes.fetch-snapshot")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/v1/snapshots/latest/", nil)
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
		return nil, fmt.Errorf("bitnodes error %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		Timestamp  int64                      `json:"timestamp"`
		TotalNodes int                        `json:"total_nodes"`
		Nodes      map[string]json.RawMessage `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse bitnodes payload: %w", err)
	}
	if raw.TotalNodes < 0 || len(raw.Nodes) == 0 {
		return nil, fmt.Errorf("bitnodes payload has no nodes")
	}

	torCount := 0
	activeCount := 0
	for addr, fields := range raw.Nodes {
		if strings.Contains(addr, ".onion") || onionHostname(fields) {
			torCount++
		}
		if activeNode(fields) {
			activeCount++
		}
	}

	ts := time.Unix(raw.Timestamp, 0).UTC()
	if raw.Timestamp == 0 {
		ts = time.Now().UTC()
	}

	total := raw.TotalNodes
	if total == 0 {
		total = len(raw.Nodes)
	}
	if torCount > total {
		torCount = total
	}

	return &domain.Snapshot{
		Timestamp:   ts,
		TotalNodes:  total,
		TorNodes:    torCount,
		ActiveNodes: activeCount,
	}, nil
}

// onionHostname checks the hostname field (index 5) for a Tor address.
func onionHostname(fields json.RawMessage) bool {
	var arr []any
	if err := json.Unmarshal(fields, &arr); err != nil || len(arr) < 6 {
		return false
	}
	host, ok := arr[5].(string)
	return ok && strings.HasSuffix(host, ".onion")
}

// activeNode treats a node as active when the crawler recorded a
// non-zero protocol version (index 0), i.e. the handshake completed.
func activeNode(fields json.RawMessage) bool {
	var arr []any
	if err := json.Unmarshal(fields, &arr); err != nil || len(arr) == 0 {
		return false
	}
	v, ok := arr[0].(float64)
	return ok && v > 0
}
