package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"nodepulse/internal/cache"
	"nodepulse/internal/config"
	"nodepulse/internal/db"
	"nodepulse/internal/engine"
	"nodepulse/internal/job"
	"nodepulse/internal/provider"
	"nodepulse/internal/repository"
	"nodepulse/internal/service"
	"nodepulse/internal/tui"
	"nodepulse/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initPostgresFunc  = db.InitPostgres
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newWishServerFunc = wish.NewServer
	startPollerFunc   = func(p *job.RefreshPoller, ctx context.Context) { go p.Start(ctx) }
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Snapshot store; a nil pool disables persistence
	var store engine.SnapshotStore
	if db.Pool != nil {
		repo := repository.NewSnapshotRepository(db.Pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		store = repo
	}

	// Provider chains, engine, and serving facade
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	nodeProviders := []provider.NodeProvider{
		provider.NewBitnodesProvider(tracer, "bitnodes", cfg.BitnodesURL),
	}
	if cfg.BitnodesMirrorURL != "" {
		nodeProviders = append(nodeProviders,
			provider.NewBitnodesProvider(tracer, "bitnodes-mirror", cfg.BitnodesMirrorURL))
	}
	nodeChain := provider.NewNodeChain(tracer, timeout, nodeProviders...)
	quoteChain := provider.NewQuoteChain(tracer, timeout,
		provider.NewCoinGeckoQuoteProvider(tracer),
		provider.NewBinanceQuoteProvider(tracer),
	)

	eng := engine.New(tracer, engine.Config{
		TorTrendEpsilon:  cfg.TorTrendEpsilon,
		NetworkSignalTau: cfg.NetworkSignalTau,
		NodeCacheTTL:     time.Duration(cfg.NodeCacheTTLSecs) * time.Second,
		QuoteCacheTTL:    time.Duration(cfg.QuoteCacheTTLSecs) * time.Second,
		HistoryCapacity:  cfg.HistoryCapacity,
	}, nodeChain, quoteChain, store)
	eng.LoadHistory(ctx)

	pulse := service.NewPulseService(tracer, eng, cache.Client)

	// Keep the dashboard data fresh for connected sessions
	poller := job.NewRefreshPoller(tracer, pulse, cfg.NodePollSecs, cfg.QuotePollSecs)
	startPollerFunc(poller, ctx)

	// Build Wish SSH server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			// The dashboard is read-only, so any key gets in; the
			// fingerprint is logged for auditing.
			fingerprint := gossh.FingerprintSHA256(key)
			log.Printf("SSH session: user=%s fingerprint=%s", ctx.User(), fingerprint)
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				svc := tui.Services{
					Pulse:    pulse,
					Username: s.User(),
				}

				model := tui.NewAppModel(svc)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}
