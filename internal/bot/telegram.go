package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"nodepulse/internal/domain"
	"nodepulse/internal/service"

	tele "gopkg.in/telebot.v3"
)

func StartTelegramBot(pulse *service.PulseService) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/signal", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			records := pulse.GetSignals(context.Background())
			if len(records) == 0 {
				return c.Send("No signal computed yet, try again shortly")
			}
			return c.Send(formatSignals(records))
		}
		symbol := strings.ToUpper(args[0])
		rec, err := pulse.GetSignal(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("%v\nSupported: %s", err, strings.Join(domain.TrackedSymbols, ", ")))
		}
		return c.Send(formatRecord(rec))
	})

	b.Handle("/nodes", func(c tele.Context) error {
		stats, ok := pulse.GetNodeStats(context.Background())
		if !ok {
			return c.Send("No node snapshot yet, try again shortly")
		}
		msg := fmt.Sprintf(
			"Bitcoin Network Nodes\nTotal: %d\nActive: %d\nTor: %d (%.2f%%)\nHistory: %d snapshots",
			stats.TotalNodes, stats.ActiveNodes, stats.TorNodes, stats.TorPercent, stats.HistorySize,
		)
		return c.Send(msg)
	})

	b.Handle("/price", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /price BTC\nSupported: %s", strings.Join(domain.TrackedSymbols, ", ")))
		}
		symbol := strings.ToUpper(args[0])
		quote, err := pulse.GetQuote(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", symbol, err))
		}
		msg := fmt.Sprintf(
			"%s\nPrice: $%.2f\n24h Change: %.2f%%",
			symbol, quote.PriceUSD, quote.Change24hPct,
		)
		return c.Send(msg)
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func formatSignals(records []domain.SignalRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Current signal: %s\n", records[0].Signal))
	for _, rec := range records {
		sb.WriteString(fmt.Sprintf("%s  $%.2f  %+.2f%%\n", rec.Symbol, rec.PriceUSD, rec.Change24hPct))
	}
	return sb.String()
}

func formatRecord(rec *domain.SignalRecord) string {
	return fmt.Sprintf(
		"%s: %s\nMagnitude: %.4f\nPrice: $%.2f\n24h Change: %.2f%%",
		rec.Symbol, rec.Signal, rec.Magnitude, rec.PriceUSD, rec.Change24hPct,
	)
}
