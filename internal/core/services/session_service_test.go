package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

func TestSessionService_StartIssuesDistinctUnguessableTokens(t *testing.T) {
	store := newMockSessionStore()
	service := newTestSessions(t, store, time.Hour, fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))

	ctx := context.Background()
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		sess, err := service.Start(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("unexpected error on start %d: %v", i+1, err)
		}
		// 32 random bytes base64url-encode to 44 characters.
		if len(sess.Token) != 44 {
			t.Fatalf("unexpected token length %d for %q", len(sess.Token), sess.Token)
		}
		if seen[sess.Token] {
			t.Fatalf("duplicate token issued: %q", sess.Token)
		}
		seen[sess.Token] = true
	}
}

func TestSessionService_StartSetsAbsoluteExpiry(t *testing.T) {
	store := newMockSessionStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service := newTestSessions(t, store, time.Hour, fixedClock(now))

	sess, err := service.Start(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.CreatedAt.Equal(now) {
		t.Fatalf("expected CreatedAt %v, got %v", now, sess.CreatedAt)
	}
	if !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected ExpiresAt %v, got %v", now.Add(time.Hour), sess.ExpiresAt)
	}
	if sess.SourceIP != "1.2.3.4" {
		t.Fatalf("expected source address to be recorded, got %q", sess.SourceIP)
	}
}

func TestSessionService_StartPropagatesQuotaError(t *testing.T) {
	store := newMockSessionStore()
	store.createErr = domain.ErrAddressQuotaExceeded
	service := newTestSessions(t, store, time.Hour, nil)

	if _, err := service.Start(context.Background(), "1.2.3.4"); !errors.Is(err, domain.ErrAddressQuotaExceeded) {
		t.Fatalf("expected address quota error, got %v", err)
	}
	if len(store.sessions) != 0 {
		t.Fatal("nothing must be stored when the quota rejects creation")
	}
}

func TestSessionService_ResolveMapsStoreErrors(t *testing.T) {
	store := newMockSessionStore()
	service := newTestSessions(t, store, time.Hour, nil)

	ctx := context.Background()

	if _, err := service.Resolve(ctx, ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not-found for empty token, got %v", err)
	}
	if _, err := service.Resolve(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not-found for unknown token, got %v", err)
	}

	store.getErr = domain.ErrSessionExpired
	if _, err := service.Resolve(ctx, "expired"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func newTestSessions(t *testing.T, store ports.SessionStore, ttl time.Duration, clock ports.Clock) *SessionService {
	t.Helper()
	service, err := NewSessionService(store, ttl, clock)
	if err != nil {
		t.Fatalf("failed to create session service: %v", err)
	}
	return service
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type mockSessionStore struct {
	sessions   map[string]*domain.Session
	challenges map[string]domain.Challenge
	createErr  error
	getErr     error
	putChErr   error
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions:   make(map[string]*domain.Session),
		challenges: make(map[string]domain.Challenge),
	}
}

func (m *mockSessionStore) Create(_ context.Context, sess *domain.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[sess.Token] = sess
	return nil
}

func (m *mockSessionStore) Get(_ context.Context, token string) (*domain.Session, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	sess, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (m *mockSessionStore) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *mockSessionStore) PutChallenge(_ context.Context, ch domain.Challenge) error {
	if m.putChErr != nil {
		return m.putChErr
	}
	m.challenges[ch.SessionToken+"/"+ch.ID] = ch
	return nil
}

func (m *mockSessionStore) GetChallenge(_ context.Context, sessionToken, challengeID string) (domain.Challenge, error) {
	ch, ok := m.challenges[sessionToken+"/"+challengeID]
	if !ok {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	return ch, nil
}

func (m *mockSessionStore) Close() error { return nil }
