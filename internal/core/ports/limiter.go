// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/l4yercom/picknbrain/internal/core/domain"
)

type RateLimiter interface {
	// AllowSession admits or rejects one request for a (session, endpoint)
	// pair. Rejections return a *domain.RetryAfterError.
	AllowSession(ctx context.Context, sessionToken, endpoint string) (domain.Decision, error)

	// AllowAddress admits or rejects one request attributed to a source
	// address, independent of any session.
	AllowAddress(ctx context.Context, sourceIP string) (domain.Decision, error)
}
