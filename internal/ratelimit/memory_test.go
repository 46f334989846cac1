package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterEnforcesWindowLimit(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	now := time.Date(2026, 3, 1, 10, 30, 12, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, errAllow := limiter.Allow(context.Background(), "u:1", 3, now)
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !result.Allowed {
			t.Fatalf("expected request %d allowed", i)
		}
	}

	result, errAllow := limiter.Allow(context.Background(), "u:1", 3, now.Add(5*time.Second))
	if errAllow != nil {
		t.Fatalf("allow over limit: %v", errAllow)
	}
	if result.Allowed {
		t.Fatal("expected fourth request denied within the window")
	}
	if result.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", result.Remaining)
	}
}

func TestMemoryLimiterResetsOnNextWindow(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	now := time.Date(2026, 3, 1, 10, 30, 59, 0, time.UTC)

	if result, _ := limiter.Allow(context.Background(), "u:1", 1, now); !result.Allowed {
		t.Fatal("expected first request allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "u:1", 1, now); result.Allowed {
		t.Fatal("expected second request denied")
	}

	next := now.Add(2 * time.Second)
	result, errAllow := limiter.Allow(context.Background(), "u:1", 1, next)
	if errAllow != nil {
		t.Fatalf("allow next window: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatal("expected request allowed after window rollover")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	now := time.Now()

	if result, _ := limiter.Allow(context.Background(), "u:1", 1, now); !result.Allowed {
		t.Fatal("expected u:1 allowed")
	}
	if result, _ := limiter.Allow(context.Background(), "u:2", 1, now); !result.Allowed {
		t.Fatal("expected u:2 allowed despite u:1 exhaustion")
	}
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	for i := 0; i < 10; i++ {
		result, _ := limiter.Allow(context.Background(), "u:1", 0, time.Now())
		if !result.Allowed {
			t.Fatal("expected zero limit to disable rate limiting")
		}
	}
}

func TestManagerFallsBackToMemory(t *testing.T) {
	provider := func() SettingsConfig {
		return SettingsConfig{Limit: 1, RedisEnabled: false}
	}
	manager := NewManager(provider, time.Minute, nil, nil)

	first, errFirst := manager.Allow(context.Background(), "u:7", 1)
	if errFirst != nil {
		t.Fatalf("first allow: %v", errFirst)
	}
	if !first.Allowed {
		t.Fatal("expected first request allowed")
	}
	second, errSecond := manager.Allow(context.Background(), "u:7", 1)
	if errSecond != nil {
		t.Fatalf("second allow: %v", errSecond)
	}
	if second.Allowed {
		t.Fatal("expected second request denied")
	}
}

func TestManagerLimitClampsNegative(t *testing.T) {
	manager := NewManager(func() SettingsConfig { return SettingsConfig{Limit: -4} }, time.Minute, nil, nil)
	if limit := manager.Limit(); limit != 0 {
		t.Fatalf("expected negative limit clamped to 0, got %d", limit)
	}
}
