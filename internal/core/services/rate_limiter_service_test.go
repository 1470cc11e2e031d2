package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/l4yercom/picknbrain/internal/core/domain"
)

func TestRateLimiter_AllowsWithinSessionLimit(t *testing.T) {
	storage := newMockWindowStorage()
	service := newTestLimiter(t, storage, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 3, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 100, Window: time.Minute},
	})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := service.AllowSession(ctx, "tok-1", "analyze_scene")
		if err != nil {
			t.Fatalf("unexpected error at attempt %d: %v", i+1, err)
		}
		if !decision.Allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
		if decision.Remaining != 3-(i+1) {
			t.Fatalf("expected %d remaining after request %d, got %d", 3-(i+1), i+1, decision.Remaining)
		}
	}
}

func TestRateLimiter_RejectsBeyondSessionLimit(t *testing.T) {
	storage := newMockWindowStorage()
	service := newTestLimiter(t, storage, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 2, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 100, Window: time.Minute},
	})

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := service.AllowSession(ctx, "tok-2", "generate_scene"); err != nil {
			t.Fatalf("unexpected error on warmup %d: %v", i+1, err)
		}
	}

	decision, err := service.AllowSession(ctx, "tok-2", "generate_scene")
	if !errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit error, got decision=%+v err=%v", decision, err)
	}
	if decision.Allowed {
		t.Fatal("expected decision.Allowed=false after exceeding the limit")
	}

	var retry *domain.RetryAfterError
	if !errors.As(err, &retry) {
		t.Fatalf("expected a RetryAfterError, got %T", err)
	}
	if retry.After <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retry.After)
	}
}

func TestRateLimiter_EndpointsCountSeparately(t *testing.T) {
	storage := newMockWindowStorage()
	service := newTestLimiter(t, storage, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 1, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 100, Window: time.Minute},
	})

	ctx := context.Background()

	if _, err := service.AllowSession(ctx, "tok-3", "generate_scene"); err != nil {
		t.Fatalf("unexpected error on generate_scene: %v", err)
	}
	// A different endpoint for the same session has its own window.
	if _, err := service.AllowSession(ctx, "tok-3", "analyze_scene"); err != nil {
		t.Fatalf("unexpected error on analyze_scene: %v", err)
	}
	if _, err := service.AllowSession(ctx, "tok-3", "generate_scene"); !errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("expected generate_scene to be exhausted, got %v", err)
	}
}

func TestRateLimiter_SessionsCountSeparately(t *testing.T) {
	storage := newMockWindowStorage()
	service := newTestLimiter(t, storage, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 1, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 100, Window: time.Minute},
	})

	ctx := context.Background()

	if _, err := service.AllowSession(ctx, "tok-a", "analyze_scene"); err != nil {
		t.Fatalf("unexpected error for tok-a: %v", err)
	}
	if _, err := service.AllowSession(ctx, "tok-b", "analyze_scene"); err != nil {
		t.Fatalf("unexpected error for tok-b: %v", err)
	}
}

func TestRateLimiter_AddressRule(t *testing.T) {
	storage := newMockWindowStorage()
	service := newTestLimiter(t, storage, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 100, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 2, Window: time.Minute},
	})

	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := service.AllowAddress(ctx, "10.0.0.9"); err != nil {
			t.Fatalf("unexpected error on address request %d: %v", i+1, err)
		}
	}
	if _, err := service.AllowAddress(ctx, "10.0.0.9"); !errors.Is(err, domain.ErrRateLimitExceeded) {
		t.Fatalf("expected address throttle, got %v", err)
	}
	// Another address is unaffected.
	if _, err := service.AllowAddress(ctx, "10.0.0.10"); err != nil {
		t.Fatalf("unexpected error for a different address: %v", err)
	}
}

func TestRateLimiter_RejectsInvalidConfig(t *testing.T) {
	storage := newMockWindowStorage()

	if _, err := NewRateLimiterService(nil, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 1, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 1, Window: time.Hour},
	}); err == nil {
		t.Fatal("expected error for nil storage")
	}

	if _, err := NewRateLimiterService(storage, RateLimiterConfig{
		SessionRule: domain.RateLimitRule{Requests: 0, Window: time.Hour},
		AddressRule: domain.RateLimitRule{Requests: 1, Window: time.Hour},
	}); err == nil {
		t.Fatal("expected error for non-positive session rule")
	}
}

// newTestLimiter is a helper that fails the test immediately if creation fails.
func newTestLimiter(t *testing.T, storage *mockWindowStorage, cfg RateLimiterConfig) *RateLimiterService {
	t.Helper()
	service, err := NewRateLimiterService(storage, cfg)
	if err != nil {
		t.Fatalf("failed to create rate limiter service: %v", err)
	}
	return service
}

type mockWindowStorage struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMockWindowStorage() *mockWindowStorage {
	return &mockWindowStorage{counts: make(map[string]int64)}
}

func (m *mockWindowStorage) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], window, nil
}
