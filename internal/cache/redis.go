package cache

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

func InitRedis(ctx context.Context) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Fatalf("failed to parse REDIS_URL: %v", err)
		}
		opts = parsed
	}

	Client = newRedisClient(opts)
	if err := pingRedis(ctx, Client); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")
}

// GetJSON loads key into dest. A miss or unreadable value returns false
// without an error so callers fall through to the source of truth.
func GetJSON(ctx context.Context, client *redis.Client, key string, dest any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis read error for %s: %v", key, err)
		}
		return false
	}
	return decodeCached(key, raw, dest)
}

func decodeCached(key string, raw []byte, dest any) bool {
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("redis payload corrupt for %s: %v", key, err)
		return false
	}
	return true
}

// SetJSON stores value under key with a TTL. Write failures are logged
// and swallowed; caching is best effort.
func SetJSON(ctx context.Context, client *redis.Client, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("redis marshal error for %s: %v", key, err)
		return
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Printf("redis write error for %s: %v", key, err)
	}
}
