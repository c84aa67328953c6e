package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"nodepulse/internal/config"
	"nodepulse/internal/job"
	"nodepulse/internal/service"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origStartPoller := startPollerFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			NodePollSecs:        600,
			QuotePollSecs:       60,
			ProviderTimeoutSecs: 10,
			HistoryCapacity:     8,
			BitnodesURL:         "https://bitnodes.io",
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	startPollerFunc = func(*job.RefreshPoller, context.Context) {}
	startTelegramBotFunc = func(*service.PulseService) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		startPollerFunc = origStartPoller
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

func TestBuildNodeChainIncludesMirror(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	cfg := &config.Config{
		ProviderTimeoutSecs: 10,
		BitnodesURL:         "https://bitnodes.io",
		BitnodesMirrorURL:   "https://mirror.example.com",
	}
	if chain := buildNodeChain(tracer, cfg); chain == nil {
		t.Fatal("expected node chain")
	}
}

func TestBuildQuoteChain(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	cfg := &config.Config{ProviderTimeoutSecs: 10}
	if chain := buildQuoteChain(tracer, cfg); chain == nil {
		t.Fatal("expected quote chain")
	}
}
