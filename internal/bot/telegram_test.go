package bot

import (
	"strings"
	"testing"

	"nodepulse/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	StartTelegramBot(nil)
}

func TestFormatSignals(t *testing.T) {
	records := []domain.SignalRecord{
		{Symbol: "BTC", Signal: domain.SignalBuy, PriceUSD: 97000.12, Change24hPct: 1.5},
		{Symbol: "ETH", Signal: domain.SignalBuy, PriceUSD: 3500.5, Change24hPct: -0.25},
	}
	out := formatSignals(records)
	if !strings.Contains(out, "Current signal: BUY") {
		t.Fatalf("missing header: %q", out)
	}
	if !strings.Contains(out, "BTC") || !strings.Contains(out, "ETH") {
		t.Fatalf("missing symbols: %q", out)
	}
}

func TestFormatRecord(t *testing.T) {
	rec := &domain.SignalRecord{Symbol: "BTC", Signal: domain.SignalSell, Magnitude: -0.0123, PriceUSD: 97000, Change24hPct: -2.1}
	out := formatRecord(rec)
	if !strings.Contains(out, "BTC: SELL") {
		t.Fatalf("unexpected format: %q", out)
	}
	if !strings.Contains(out, "-0.0123") {
		t.Fatalf("missing magnitude: %q", out)
	}
}
