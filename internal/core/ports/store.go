// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/l4yercom/picknbrain/internal/core/domain"
)

// SessionStore owns session records, the per-address session registry and
// the challenges attached to sessions.
type SessionStore interface {
	// Create inserts the session and registers it against its source
	// address. It fails with domain.ErrAddressQuotaExceeded, without
	// inserting anything, when the address already holds the maximum
	// number of live sessions. The check and the insert are atomic.
	Create(ctx context.Context, sess *domain.Session) error

	// Get resolves a token. It fails with domain.ErrSessionNotFound for
	// unknown tokens and domain.ErrSessionExpired for expired ones;
	// implementations may evict the expired record on the way out.
	Get(ctx context.Context, token string) (*domain.Session, error)

	// Delete removes the session and its address registration. Deleting
	// an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// PutChallenge stores an issued challenge under its session.
	PutChallenge(ctx context.Context, ch domain.Challenge) error

	// GetChallenge resolves a challenge issued to the given session.
	// Unknown or expired challenges fail with domain.ErrChallengeNotFound.
	GetChallenge(ctx context.Context, sessionToken, challengeID string) (domain.Challenge, error)

	Close() error
}

// WindowStorage is the counting backend for fixed-window rate limiting.
type WindowStorage interface {
	// Increment atomically bumps the counter for key inside its current
	// window, opening a fresh window when the previous one has elapsed.
	// It returns the post-increment count and how long until the window
	// rolls over. Concurrent callers each observe a distinct count.
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Sweeper is implemented by stores that support an explicit reaping pass
// over expired records, in addition to lazy eviction on access.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Clock supplies the current time. Session expiry and window math go
// through it so tests can run against a fake.
type Clock interface {
	Now() time.Time
}
