// Package domain concentra as entidades centrais do backend do jogo.
package domain

import "time"

// Session is a time-bounded grant of access to the gated game endpoints.
// The token is opaque and unguessable; SourceIP is the network origin that
// created the session and is immutable afterwards. Expiry is absolute:
// ExpiresAt is fixed at creation and never slides on activity.
type Session struct {
	Token     string    `json:"token"`
	SourceIP  string    `json:"source_ip"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at the given
// instant. A session is valid strictly before ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
