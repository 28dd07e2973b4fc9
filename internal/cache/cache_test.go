package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

type item struct {
	ID string `json:"id"`
}

func TestMemoryExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(30 * time.Second)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.Set(ctx, KeyPendingReports, []item{{ID: "r1"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got []item
	found, err := m.Get(ctx, KeyPendingReports, &got)
	if err != nil || !found || len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("expected cached list, got found=%v items=%v err=%v", found, got, err)
	}

	now = now.Add(30 * time.Second)
	found, _ = m.Get(ctx, KeyPendingReports, &got)
	if found {
		t.Fatalf("expected entry to expire at the staleness window")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	_ = m.Set(ctx, KeyPendingReports, 1)
	_ = m.Set(ctx, KeyAvailableWorkers, 2)
	_ = m.Delete(ctx, KeyPendingReports, KeyAvailableWorkers)

	var v int
	if found, _ := m.Get(ctx, KeyAvailableWorkers, &v); found {
		t.Fatalf("expected entry removed")
	}
}

func TestMemoryZeroTTLDisablesCaching(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	_ = m.Set(ctx, "k", 1)

	var v int
	if found, _ := m.Get(ctx, "k", &v); found {
		t.Fatalf("expected nothing cached with zero ttl")
	}
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("WASTEWATCH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WASTEWATCH_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	r, err := NewRedis(ctx, RedisConfig{Addr: addr, TTL: time.Minute, KeyPrefix: "wastewatch-test:"})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()

	if err := r.Set(ctx, KeyAvailableWorkers, []item{{ID: "w1"}}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got []item
	if found, err := r.Get(ctx, KeyAvailableWorkers, &got); err != nil || !found || got[0].ID != "w1" {
		t.Fatalf("unexpected get found=%v got=%v err=%v", found, got, err)
	}
	if err := r.Delete(ctx, KeyAvailableWorkers); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if found, _ := r.Get(ctx, KeyAvailableWorkers, &got); found {
		t.Fatalf("expected key deleted")
	}
}
