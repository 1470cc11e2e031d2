package domain

import (
	"strings"
	"time"
)

// SceneReading is what the analyst extracted from an image: a question
// about the scene and its short canonical answer.
type SceneReading struct {
	Question string
	Solution string
}

// Challenge is an issued question bound to the session that requested it.
// The solution never leaves the server; callers only ever see ID and
// Question. ExpiresAt mirrors the owning session's expiry so stored
// challenges never outlive their session.
type Challenge struct {
	ID           string    `json:"id"`
	SessionToken string    `json:"session_token"`
	Question     string    `json:"question"`
	Solution     string    `json:"solution"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AnswerMatches reports whether a submitted answer matches the stored
// solution. The rule is fixed: leading/trailing whitespace is ignored and
// comparison is case-insensitive. Anything fuzzier (accents, synonyms)
// is intentionally out of scope.
func AnswerMatches(solution, submitted string) bool {
	return strings.EqualFold(strings.TrimSpace(solution), strings.TrimSpace(submitted))
}
