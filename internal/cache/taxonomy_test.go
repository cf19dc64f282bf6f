// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client for tests.
// Skips if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, taxonomyKeyPrefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestTaxonomyCacheRoundTrip(t *testing.T) {
	client := testValkeyClient(t)
	tc := NewTaxonomyCache(client, time.Minute)
	ctx := context.Background()

	if _, ok := tc.Get(ctx, "v1"); ok {
		t.Fatal("unexpected hit before set")
	}

	tc.Set(ctx, "v1", []byte(`{"mode":"taxonomy"}`))

	payload, ok := tc.Get(ctx, "v1")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if string(payload) != `{"mode":"taxonomy"}` {
		t.Errorf("payload: got %s", payload)
	}
}

func TestTaxonomyCacheInvalidateAll(t *testing.T) {
	client := testValkeyClient(t)
	tc := NewTaxonomyCache(client, time.Minute)
	ctx := context.Background()

	tc.Set(ctx, "v1", []byte("old tree"))
	tc.Set(ctx, "v2", []byte("older tree"))

	tc.InvalidateAll(ctx)

	if _, ok := tc.Get(ctx, "v1"); ok {
		t.Error("v1 still cached after invalidation")
	}
	if _, ok := tc.Get(ctx, "v2"); ok {
		t.Error("v2 still cached after invalidation")
	}
}
