package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fund-engine/internal/fund"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *CacheService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewCacheService(NewRedisCacheFromClient(client), 20*time.Second)
}

func TestCacheService_Keys(t *testing.T) {
	cache := newTestCache(t)

	if got := cache.FundInfoKey(); got != "fundinfo" {
		t.Errorf("FundInfoKey() = %q, want %q", got, "fundinfo")
	}
	if got := cache.ProposalKey(42); got != "proposal:42" {
		t.Errorf("ProposalKey(42) = %q, want %q", got, "proposal:42")
	}
	if got := cache.BalanceKey("0xABC"); got != "balance:0xabc" {
		t.Errorf("BalanceKey() = %q, want lowercased %q", got, "balance:0xabc")
	}
}

func TestCacheService_SetGetRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := testContext(t)

	info := fund.FundInfo{
		Initialized:      true,
		TotalValue:       2_000_000,
		TotalShareSupply: 2_000_000,
		SharePrice:       1_000_000,
	}
	if err := cache.Set(ctx, cache.FundInfoKey(), info); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var cached fund.FundInfo
	hit, err := cache.Get(ctx, cache.FundInfoKey(), &cached)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("Get() hit = false, want true")
	}
	if cached.TotalValue != info.TotalValue || cached.SharePrice != info.SharePrice {
		t.Errorf("cached = %+v, want %+v", cached, info)
	}
}

func TestCacheService_MissIsNotAnError(t *testing.T) {
	cache := newTestCache(t)
	ctx := testContext(t)

	var dest fund.FundInfo
	hit, err := cache.Get(ctx, cache.FundInfoKey(), &dest)
	if err != nil {
		t.Fatalf("Get() on miss error = %v", err)
	}
	if hit {
		t.Error("Get() on empty cache hit = true, want false")
	}
}

func TestCacheService_InvalidateFund(t *testing.T) {
	cache := newTestCache(t)
	ctx := testContext(t)

	if err := cache.Set(ctx, cache.FundInfoKey(), fund.FundInfo{TotalValue: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, cache.BalanceKey("0xaa"), fund.UserBalance{Shares: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, cache.ProposalKey(1), map[string]int{"id": 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cache.InvalidateFund(ctx); err != nil {
		t.Fatalf("InvalidateFund() error = %v", err)
	}

	for _, key := range []string{cache.FundInfoKey(), cache.BalanceKey("0xaa")} {
		exists, err := cache.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists(%q) error = %v", key, err)
		}
		if exists {
			t.Errorf("key %q survived InvalidateFund()", key)
		}
	}

	// Proposal views are invalidated separately.
	exists, err := cache.Exists(ctx, cache.ProposalKey(1))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("proposal key dropped by InvalidateFund(), want kept")
	}

	if err := cache.InvalidateProposal(ctx, 1); err != nil {
		t.Fatalf("InvalidateProposal() error = %v", err)
	}
	exists, _ = cache.Exists(ctx, cache.ProposalKey(1))
	if exists {
		t.Error("proposal key survived InvalidateProposal()")
	}
}
