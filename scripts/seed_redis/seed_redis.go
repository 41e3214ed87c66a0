package main

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/redis/go-redis/v9"

	"fleetwatch/internal/config"
)

// Keys follow vessel:auth:<api key> -> vessel id, which the ingest
// authenticator resolves after its static keys and cache.
var apiKeys = map[string]string{
	"alpha_ingest_key": "Alpha",
	"bravo_ingest_key": "Bravo",
	"test_key":         "Test",
}

func main() {
	cfg := config.Load()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	ctx := context.Background()
	fmt.Printf("Connecting to Redis at %s...\n", cfg.RedisAddr)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Connection failed: %v\n\nIs Redis running?", err)
	}
	fmt.Println("✓ Connected")

	keys := make([]string, 0, len(apiKeys))
	for k := range apiKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n── Seeding API keys ──")
	for _, k := range keys {
		redisKey := "vessel:auth:" + k
		if err := client.Set(ctx, redisKey, apiKeys[k], 0).Err(); err != nil {
			log.Fatalf("Failed to set %s: %v", redisKey, err)
		}
		fmt.Printf("  ✓ %-35s → %s\n", redisKey, apiKeys[k])
	}

	fmt.Println("\n── Verification ──")
	found, err := client.Keys(ctx, "vessel:auth:*").Result()
	if err != nil {
		log.Fatalf("Verification failed: %v", err)
	}
	fmt.Printf("  ✓ %d API keys present\n", len(found))

	fmt.Println("\n✅ Redis seeded")
}
