package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

// RateLimiterConfig agrega as regras utilizadas pelo serviço de rate limiting.
type RateLimiterConfig struct {
	// SessionRule caps requests per (session, endpoint) pair.
	SessionRule domain.RateLimitRule
	// AddressRule caps requests per source address across all endpoints.
	AddressRule domain.RateLimitRule
}

// RateLimiterService implements fixed-window admission control on top of a
// counting backend. Fixed windows are a deliberate simplicity tradeoff: a
// client can burst up to twice the nominal rate across a window boundary.
type RateLimiterService struct {
	storage ports.WindowStorage
	config  RateLimiterConfig
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

func NewRateLimiterService(storage ports.WindowStorage, cfg RateLimiterConfig) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("window storage is required")
	}
	if cfg.SessionRule.Requests <= 0 || cfg.SessionRule.Window <= 0 {
		return nil, fmt.Errorf("session rule must have positive values")
	}
	if cfg.AddressRule.Requests <= 0 || cfg.AddressRule.Window <= 0 {
		return nil, fmt.Errorf("address rule must have positive values")
	}

	return &RateLimiterService{storage: storage, config: cfg}, nil
}

// AllowSession admits one request for a (session, endpoint) pair.
func (s *RateLimiterService) AllowSession(ctx context.Context, sessionToken, endpoint string) (domain.Decision, error) {
	return s.allow(ctx, buildKey("session", sessionToken, endpoint), s.config.SessionRule)
}

// AllowAddress admits one request attributed to a source address.
func (s *RateLimiterService) AllowAddress(ctx context.Context, sourceIP string) (domain.Decision, error) {
	return s.allow(ctx, buildKey("ip", sourceIP), s.config.AddressRule)
}

// allow increments first and compares after. The backend's Increment is
// atomic, so every concurrent caller observes a distinct count and exactly
// rule.Requests of them are admitted per window; a rejected request may
// leave the stored count above the limit, which is harmless because the
// counter resets with the window.
func (s *RateLimiterService) allow(ctx context.Context, key string, rule domain.RateLimitRule) (domain.Decision, error) {
	count, rollover, err := s.storage.Increment(ctx, key, rule.Window)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("increment %s: %w", key, err)
	}

	if count > int64(rule.Requests) {
		decision := domain.Decision{Allowed: false, Key: key, Count: count, RetryAfter: rollover}
		return decision, &domain.RetryAfterError{After: rollover}
	}

	return domain.Decision{
		Allowed:   true,
		Key:       key,
		Count:     count,
		Remaining: rule.Requests - int(count),
	}, nil
}

// buildKey keeps identifiers verbatim apart from trimming: session tokens
// are case-sensitive, so no case folding here.
func buildKey(scope string, parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return fmt.Sprintf("ratelimit:%s:%s", scope, strings.Join(parts, ":"))
}
