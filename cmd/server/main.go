package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nodepulse/internal/bot"
	"nodepulse/internal/cache"
	"nodepulse/internal/config"
	"nodepulse/internal/db"
	"nodepulse/internal/engine"
	"nodepulse/internal/handler"
	"nodepulse/internal/job"
	"nodepulse/internal/provider"
	"nodepulse/internal/repository"
	"nodepulse/internal/service"
	"nodepulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "nodepulse/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newSnapshotRepoFunc    = repository.NewSnapshotRepository
	newNodeChainFunc       = buildNodeChain
	newQuoteChainFunc      = buildQuoteChain
	newEngineFunc          = engine.New
	newPulseServiceFunc    = service.NewPulseService
	newRefreshPollerFunc   = job.NewRefreshPoller
	startPollerFunc        = func(p *job.RefreshPoller, ctx context.Context) { go p.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func buildNodeChain(tracer trace.Tracer, cfg *config.Config) *provider.NodeChain {
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	providers := []provider.NodeProvider{
		provider.NewBitnodesProvider(tracer, "bitnodes", cfg.BitnodesURL),
	}
	if cfg.BitnodesMirrorURL != "" {
		providers = append(providers,
			provider.NewBitnodesProvider(tracer, "bitnodes-mirror", cfg.BitnodesMirrorURL))
	}
	return provider.NewNodeChain(tracer, timeout, providers...)
}

func buildQuoteChain(tracer trace.Tracer, cfg *config.Config) *provider.QuoteChain {
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	return provider.NewQuoteChain(tracer, timeout,
		provider.NewCoinGeckoQuoteProvider(tracer),
		provider.NewBinanceQuoteProvider(tracer),
	)
}

// @title           NodePulse API
// @version         1.0
// @description     Bitcoin network node statistics and trading signals.

// @host      localhost:8080
// @BasePath  /
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

	// Snapshot store and migrations; a nil pool disables persistence
	var store engine.SnapshotStore
	if db.Pool != nil {
		repo := newSnapshotRepoFunc(db.Pool, tracer)
		if err := repo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		store = repo
	}

	// Provider chains and the signal engine
	nodeChain := newNodeChainFunc(tracer, cfg)
	quoteChain := newQuoteChainFunc(tracer, cfg)

	eng := newEngineFunc(tracer, engine.Config{
		TorTrendEpsilon:  cfg.TorTrendEpsilon,
		NetworkSignalTau: cfg.NetworkSignalTau,
		NodeCacheTTL:     time.Duration(cfg.NodeCacheTTLSecs) * time.Second,
		QuoteCacheTTL:    time.Duration(cfg.QuoteCacheTTLSecs) * time.Second,
		HistoryCapacity:  cfg.HistoryCapacity,
	}, nodeChain, quoteChain, store)
	eng.LoadHistory(ctx)

	pulse := newPulseServiceFunc(tracer, eng, cache.Client)

	// Start refresh poller (background goroutines, stopped by ctx cancel)
	poller := newRefreshPollerFunc(tracer, pulse, cfg.NodePollSecs, cfg.QuotePollSecs)
	startPollerFunc(poller, ctx)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBotFunc(pulse)

	// Create handlers and routes
	h := newHandlerFunc(tracer, pulse, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("nodepulse"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
