package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Default thresholds are deliberately conservative; both are tunable
// per deployment via env.
const (
	defaultTorTrendEpsilon  = 0.001
	defaultNetworkSignalTau = 0.001
)

type Config struct {
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string
	APIKey           string

	BitnodesURL       string
	BitnodesMirrorURL string

	NodePollSecs        int
	QuotePollSecs       int
	ProviderTimeoutSecs int
	HistoryCapacity     int
	NodeCacheTTLSecs    int
	QuoteCacheTTLSecs   int

	TorTrendEpsilon  float64
	NetworkSignalTau float64

	SSHPort        int
	SSHHostKeyPath string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, snapshot history will not be persisted")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}

	cfg.BitnodesURL = strings.TrimSpace(os.Getenv("BITNODES_URL"))
	if cfg.BitnodesURL == "" {
		cfg.BitnodesURL = "https://bitnodes.io"
	}
	cfg.BitnodesMirrorURL = strings.TrimSpace(os.Getenv("BITNODES_MIRROR_URL"))

	cfg.NodePollSecs = 600
	if v := os.Getenv("NODE_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NodePollSecs = n
		}
	}

	cfg.QuotePollSecs = 60
	if v := os.Getenv("QUOTE_POLL_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QuotePollSecs = n
		}
	}

	cfg.ProviderTimeoutSecs = 10
	if v := strings.TrimSpace(os.Getenv("PROVIDER_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 5 && n <= 15 {
			cfg.ProviderTimeoutSecs = n
		}
	}

	// One week of 10-minute snapshots.
	cfg.HistoryCapacity = 1008
	if v := strings.TrimSpace(os.Getenv("HISTORY_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 2 && n <= 1008 {
			cfg.HistoryCapacity = n
		}
	}

	cfg.NodeCacheTTLSecs = 600
	if v := strings.TrimSpace(os.Getenv("NODE_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.NodeCacheTTLSecs = n
		}
	}

	cfg.QuoteCacheTTLSecs = 60
	if v := strings.TrimSpace(os.Getenv("QUOTE_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QuoteCacheTTLSecs = n
		}
	}

	cfg.TorTrendEpsilon = defaultTorTrendEpsilon
	if v := strings.TrimSpace(os.Getenv("TOR_TREND_EPSILON")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.TorTrendEpsilon = n
		}
	}

	cfg.NetworkSignalTau = defaultNetworkSignalTau
	if v := strings.TrimSpace(os.Getenv("NETWORK_SIGNAL_TAU")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.NetworkSignalTau = n
		}
	}

	cfg.SSHPort = 2222
	if v := strings.TrimSpace(os.Getenv("SSH_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SSHPort = n
		}
	}

	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/nodepulse_host_key"
	}

	return cfg
}
