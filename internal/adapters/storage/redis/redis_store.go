// Package redis disponibiliza a implementação do storage baseada em Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

// Store persists sessions, the per-address registry, challenges and rate
// windows in Redis. Expiry rides on key TTLs, so there is no sweep; the
// per-address quota is the only check-then-act sequence and runs inside a
// WATCH transaction on the address set.
type Store struct {
	client        *redis.Client
	maxPerAddress int
}

var (
	_ ports.SessionStore  = (*Store)(nil)
	_ ports.WindowStorage = (*Store)(nil)
)

type Config struct {
	Addr                  string
	Password              string
	DB                    int
	MaxSessionsPerAddress int
}

func New(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.MaxSessionsPerAddress <= 0 {
		cfg.MaxSessionsPerAddress = 3
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{client: client, maxPerAddress: cfg.MaxSessionsPerAddress}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Create registers the session against its address and stores it with a
// TTL matching its expiry. The WATCH transaction makes the quota check and
// the insert atomic: a concurrent create for the same address forces a
// retry by the client library, so the quota can never be overshot.
func (s *Store) Create(ctx context.Context, sess *domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at creation")
	}

	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	addrKey := addressKey(sess.SourceIP)
	register := func(tx *redis.Tx) error {
		tokens, err := tx.SMembers(ctx, addrKey).Result()
		if err != nil {
			return err
		}

		// Session keys expire on their own; prune tokens whose record
		// is already gone before counting.
		live := 0
		var stale []interface{}
		for _, token := range tokens {
			exists, err := tx.Exists(ctx, sessionKey(token)).Result()
			if err != nil {
				return err
			}
			if exists > 0 {
				live++
			} else {
				stale = append(stale, token)
			}
		}

		if live >= s.maxPerAddress {
			return domain.ErrAddressQuotaExceeded
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(stale) > 0 {
				pipe.SRem(ctx, addrKey, stale...)
			}
			pipe.Set(ctx, sessionKey(sess.Token), blob, ttl)
			pipe.SAdd(ctx, addrKey, sess.Token)
			pipe.Expire(ctx, addrKey, ttl)
			return nil
		})
		return err
	}

	// The transaction aborts when another create races on the same
	// address set; retry a few times before giving up.
	for attempt := 0; attempt < 3; attempt++ {
		err = s.client.Watch(ctx, register, addrKey)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return err
}

func (s *Store) Get(ctx context.Context, token string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// The TTL normally evicts first; this covers clock skew between the
	// service and the Redis server.
	if sess.Expired(time.Now()) {
		s.evict(ctx, &sess)
		return nil, domain.ErrSessionExpired
	}

	return &sess, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	val, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		// Unreadable record: drop the key itself, the address set entry
		// is pruned on the next create for that address.
		return s.client.Del(ctx, sessionKey(token)).Err()
	}

	s.evict(ctx, &sess)
	return nil
}

func (s *Store) evict(ctx context.Context, sess *domain.Session) {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sess.Token))
	pipe.SRem(ctx, addressKey(sess.SourceIP), sess.Token)
	_, _ = pipe.Exec(ctx)
}

func (s *Store) PutChallenge(ctx context.Context, ch domain.Challenge) error {
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired at creation")
	}

	blob, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	return s.client.Set(ctx, challengeKey(ch.SessionToken, ch.ID), blob, ttl).Err()
}

func (s *Store) GetChallenge(ctx context.Context, sessionToken, challengeID string) (domain.Challenge, error) {
	val, err := s.client.Get(ctx, challengeKey(sessionToken, challengeID)).Result()
	if err == redis.Nil {
		return domain.Challenge{}, domain.ErrChallengeNotFound
	}
	if err != nil {
		return domain.Challenge{}, err
	}

	var ch domain.Challenge
	if err := json.Unmarshal([]byte(val), &ch); err != nil {
		return domain.Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return ch, nil
}

// Increment bumps the window counter and returns the post-increment count
// plus the time until rollover. ExpireNX pins the expiry to the first hit
// of the window, which is what makes this a fixed window rather than a
// sliding one.
func (s *Store) Increment(ctx context.Context, key string, windowDur time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	counter := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, windowDur)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	rollover := ttl.Val()
	if rollover < 0 {
		rollover = windowDur
	}
	return counter.Val(), rollover, nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func addressKey(ip string) string {
	return "sessions:addr:" + ip
}

func challengeKey(token, id string) string {
	return "challenge:" + token + ":" + id
}
