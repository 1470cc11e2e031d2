package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

const sessionTokenBytes = 32

// SessionService mints and resolves game sessions. Sessions carry a fixed
// absolute TTL from creation; there is no touch/renew path, so a token's
// lifetime is decided the moment it is issued. Simpler than a sliding idle
// timeout, and it keeps the per-address quota meaningful.
type SessionService struct {
	store ports.SessionStore
	ttl   time.Duration
	clock ports.Clock
}

func NewSessionService(store ports.SessionStore, ttl time.Duration, clock ports.Clock) (*SessionService, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &SessionService{store: store, ttl: ttl, clock: clock}, nil
}

// Start creates a session for the given source address. It fails with
// domain.ErrAddressQuotaExceeded when the address already holds the maximum
// number of live sessions; nothing is created in that case.
func (s *SessionService) Start(ctx context.Context, sourceIP string) (*domain.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.clock.Now()
	sess := &domain.Session{
		Token:     token,
		SourceIP:  sourceIP,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// Resolve validates a caller-supplied token. Unknown and expired tokens
// both surface as invalid-session failures.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.Get(ctx, token)
}

// End destroys a session before its natural expiry.
func (s *SessionService) End(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}

// newSessionToken draws 32 bytes from crypto/rand, so tokens cannot be
// predicted from prior tokens or from the requesting address.
func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
