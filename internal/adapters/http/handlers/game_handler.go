// Package handlers agrupa os handlers HTTP do jogo.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httpMiddleware "github.com/l4yercom/picknbrain/internal/adapters/http/middleware"
	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/services"
)

const maxScenePromptLength = 200

// GameHandler exposes the game operations over HTTP. Body validation runs
// before the gate, so malformed requests never consume a rate-limit slot.
type GameHandler struct {
	sessions *services.SessionService
	game     *services.GameService
	logger   *slog.Logger
}

func NewGameHandler(sessions *services.SessionService, game *services.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{sessions: sessions, game: game, logger: logger}
}

// Register mounts the game routes on the given router.
func (h *GameHandler) Register(r chi.Router) {
	r.Post("/start-session", h.StartSession)
	r.Post("/generate-scene", h.GenerateScene)
	r.Post("/analyze-scene", h.AnalyzeScene)
	r.Post("/validate-challenge", h.ValidateChallenge)
}

type startSessionResponse struct {
	SessionToken string `json:"sessionToken"`
	ExpiresAt    string `json:"expiresAt"`
}

func (h *GameHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Start(r.Context(), httpMiddleware.ClientIP(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt.Format(time.RFC3339),
	})
}

type generateSceneRequest struct {
	ScenePrompt string `json:"scenePrompt"`
}

type generateSceneResponse struct {
	SceneImage string `json:"sceneImage"`
}

func (h *GameHandler) GenerateScene(w http.ResponseWriter, r *http.Request) {
	var req generateSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ScenePrompt) == "" || len(req.ScenePrompt) > maxScenePromptLength {
		h.writeBadRequest(w, "invalid scene prompt")
		return
	}

	image, err := h.game.GenerateScene(r.Context(), bearerToken(r), req.ScenePrompt)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateSceneResponse{SceneImage: image})
}

type analyzeSceneRequest struct {
	SceneData string `json:"sceneData"`
}

type analyzeSceneResponse struct {
	Challenge   string `json:"challenge"`
	ChallengeID string `json:"challengeId"`
}

func (h *GameHandler) AnalyzeScene(w http.ResponseWriter, r *http.Request) {
	var req analyzeSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SceneData) == "" {
		h.writeBadRequest(w, "invalid scene data")
		return
	}

	ch, err := h.game.AnalyzeScene(r.Context(), bearerToken(r), req.SceneData)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// The solution stays server-side; only the question travels.
	writeJSON(w, http.StatusOK, analyzeSceneResponse{
		Challenge:   ch.Question,
		ChallengeID: ch.ID,
	})
}

type validateChallengeRequest struct {
	ChallengeID    string `json:"challengeId"`
	PlayerResponse string `json:"playerResponse"`
}

type validateChallengeResponse struct {
	Correct bool `json:"correct"`
}

func (h *GameHandler) ValidateChallenge(w http.ResponseWriter, r *http.Request) {
	var req validateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ChallengeID) == "" {
		h.writeBadRequest(w, "challengeId is required")
		return
	}

	correct, err := h.game.ValidateChallenge(r.Context(), bearerToken(r), req.ChallengeID, req.PlayerResponse)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateChallengeResponse{Correct: correct})
}

// Healthz responde com uma mensagem simples para verificar o serviço.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *GameHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInvalidSession(err):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
	case errors.Is(err, domain.ErrAddressQuotaExceeded):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrRateLimitExceeded):
		var retry *domain.RetryAfterError
		if errors.As(err, &retry) && retry.After > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.After.Seconds()))))
		}
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded for this session"})
	case domain.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case domain.IsUpstreamFailure(err):
		h.logger.Error("upstream provider failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream provider failed, please retry"})
	default:
		h.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *GameHandler) writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
