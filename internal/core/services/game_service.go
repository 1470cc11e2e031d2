package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

// Endpoint names used as rate-window keys. Limits are scoped to the
// session's lifetime: a fresh session from the same address starts with
// fresh counters.
const (
	EndpointGenerateScene     = "generate_scene"
	EndpointAnalyzeScene      = "analyze_scene"
	EndpointValidateChallenge = "validate_challenge"
)

// GameService is the single gate in front of the game operations. Every
// call runs the same admission sequence: resolve the session, consult the
// rate limiter, and only then touch the scene provider (or the local
// validation logic). No other code path mutates session or window state,
// which is what keeps quota accounting correct under concurrency.
type GameService struct {
	sessions *SessionService
	limiter  ports.RateLimiter
	provider ports.SceneProvider
	store    ports.SessionStore
	clock    ports.Clock
}

func NewGameService(sessions *SessionService, limiter ports.RateLimiter, provider ports.SceneProvider, store ports.SessionStore, clock ports.Clock) (*GameService, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("scene provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &GameService{
		sessions: sessions,
		limiter:  limiter,
		provider: provider,
		store:    store,
		clock:    clock,
	}, nil
}

// GenerateScene renders an image for the prompt through the provider.
func (g *GameService) GenerateScene(ctx context.Context, token, prompt string) (string, error) {
	if _, err := g.admit(ctx, token, EndpointGenerateScene); err != nil {
		return "", err
	}
	return g.provider.GenerateScene(ctx, prompt)
}

// AnalyzeScene asks the provider for a question about the image, stores the
// solution server-side and returns the challenge. Callers only ever see the
// challenge ID and question; the solution stays on the server until
// ValidateChallenge compares against it.
func (g *GameService) AnalyzeScene(ctx context.Context, token, sceneData string) (domain.Challenge, error) {
	sess, err := g.admit(ctx, token, EndpointAnalyzeScene)
	if err != nil {
		return domain.Challenge{}, err
	}

	reading, err := g.provider.AnalyzeScene(ctx, sceneData)
	if err != nil {
		return domain.Challenge{}, err
	}

	ch := domain.Challenge{
		ID:           uuid.NewString(),
		SessionToken: sess.Token,
		Question:     reading.Question,
		Solution:     reading.Solution,
		IssuedAt:     g.clock.Now(),
		ExpiresAt:    sess.ExpiresAt,
	}

	if err := g.store.PutChallenge(ctx, ch); err != nil {
		return domain.Challenge{}, fmt.Errorf("store challenge: %w", err)
	}

	return ch, nil
}

// ValidateChallenge grades a submitted answer against the stored solution.
// Pure local comparison, no provider call. Unknown challenge IDs (including
// challenges issued to a different session) fail with
// domain.ErrChallengeNotFound.
func (g *GameService) ValidateChallenge(ctx context.Context, token, challengeID, submitted string) (bool, error) {
	sess, err := g.admit(ctx, token, EndpointValidateChallenge)
	if err != nil {
		return false, err
	}

	ch, err := g.store.GetChallenge(ctx, sess.Token, challengeID)
	if err != nil {
		return false, err
	}

	return domain.AnswerMatches(ch.Solution, submitted), nil
}

// admit runs the gate. Order matters: the session check is free and the
// limiter increment is only charged for callers holding a live session.
// Once admitted the slot stays consumed even if the provider call later
// fails or the caller goes away; admission pays for attempted work.
func (g *GameService) admit(ctx context.Context, token, endpoint string) (*domain.Session, error) {
	sess, err := g.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := g.limiter.AllowSession(ctx, sess.Token, endpoint); err != nil {
		return nil, err
	}

	return sess, nil
}
