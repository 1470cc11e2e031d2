// Package memory disponibiliza a implementação do storage em memória.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

// Store keeps sessions, the per-address registry, issued challenges and
// rate windows in process memory behind a single mutex. Expired records
// are evicted lazily on access and by Sweep.
type Store struct {
	mu            sync.Mutex
	clock         ports.Clock
	maxPerAddress int

	sessions   map[string]*domain.Session
	byAddress  map[string]map[string]struct{}
	challenges map[string]map[string]domain.Challenge
	windows    map[string]*window
}

type window struct {
	start time.Time
	dur   time.Duration
	count int64
}

var (
	_ ports.SessionStore  = (*Store)(nil)
	_ ports.WindowStorage = (*Store)(nil)
	_ ports.Sweeper       = (*Store)(nil)
)

type Config struct {
	MaxSessionsPerAddress int
	Clock                 ports.Clock
}

func New(cfg Config) *Store {
	if cfg.MaxSessionsPerAddress <= 0 {
		cfg.MaxSessionsPerAddress = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &Store{
		clock:         cfg.Clock,
		maxPerAddress: cfg.MaxSessionsPerAddress,
		sessions:      make(map[string]*domain.Session),
		byAddress:     make(map[string]map[string]struct{}),
		challenges:    make(map[string]map[string]domain.Challenge),
		windows:       make(map[string]*window),
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Create inserts the session after enforcing the per-address quota. The
// quota check first drops any expired sessions still registered against
// the address, so an address regains a slot the moment one of its
// sessions expires, not only after a sweep.
func (s *Store) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for token := range s.byAddress[sess.SourceIP] {
		existing, ok := s.sessions[token]
		if !ok {
			delete(s.byAddress[sess.SourceIP], token)
			continue
		}
		if existing.Expired(now) {
			s.evictLocked(token)
		}
	}

	if len(s.byAddress[sess.SourceIP]) >= s.maxPerAddress {
		return domain.ErrAddressQuotaExceeded
	}

	stored := *sess
	s.sessions[sess.Token] = &stored
	if s.byAddress[sess.SourceIP] == nil {
		s.byAddress[sess.SourceIP] = make(map[string]struct{})
	}
	s.byAddress[sess.SourceIP][sess.Token] = struct{}{}
	return nil
}

// Get resolves a token, evicting it on the spot when expired. An expired
// session is indistinguishable from a missing one except for the error.
func (s *Store) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.Expired(s.clock.Now()) {
		s.evictLocked(token)
		return nil, domain.ErrSessionExpired
	}

	snapshot := *sess
	return &snapshot, nil
}

func (s *Store) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(token)
	return nil
}

func (s *Store) PutChallenge(_ context.Context, ch domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.challenges[ch.SessionToken] == nil {
		s.challenges[ch.SessionToken] = make(map[string]domain.Challenge)
	}
	s.challenges[ch.SessionToken][ch.ID] = ch
	return nil
}

func (s *Store) GetChallenge(_ context.Context, sessionToken, challengeID string) (domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[sessionToken][challengeID]
	if !ok {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if !s.clock.Now().Before(ch.ExpiresAt) {
		delete(s.challenges[sessionToken], challengeID)
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	return ch, nil
}

// Increment implements fixed-window counting: the first hit opens a
// window, hits inside it bump the counter, and the first hit at or past
// the boundary resets both. Atomicity comes from the store mutex, so
// concurrent callers each see a distinct count.
func (s *Store) Increment(_ context.Context, key string, windowDur time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= windowDur {
		w = &window{start: now, dur: windowDur}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.start.Add(windowDur).Sub(now), nil
}

// Sweep removes every expired session together with its challenges and
// address registration, plus windows whose counting interval has elapsed.
// Called periodically so idle expired records don't pin memory between
// lookups.
func (s *Store) Sweep(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			s.evictLocked(token)
		}
	}
	for key, w := range s.windows {
		if now.Sub(w.start) >= w.dur {
			delete(s.windows, key)
		}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.byAddress = nil
	s.challenges = nil
	s.windows = nil
	return nil
}

// evictLocked removes all trace of a session. Caller holds s.mu.
func (s *Store) evictLocked(token string) {
	if sess, ok := s.sessions[token]; ok {
		if set := s.byAddress[sess.SourceIP]; set != nil {
			delete(set, token)
			if len(set) == 0 {
				delete(s.byAddress, sess.SourceIP)
			}
		}
	}
	delete(s.sessions, token)
	delete(s.challenges, token)
}
