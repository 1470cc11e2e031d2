package services

import (
	"time"

	"github.com/l4yercom/picknbrain/internal/core/ports"
)

// SystemClock reads the host wall clock. If the host clock is adjusted
// backward, expired sessions can appear valid again; accepted limitation.
type SystemClock struct{}

var _ ports.Clock = SystemClock{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
