package domain

import "time"

// RateLimitRule bounds how many requests are admitted within a fixed
// counting window.
type RateLimitRule struct {
	Requests int
	Window   time.Duration
}

// Decision is the outcome of a rate-limit check. RetryAfter is only
// meaningful on rejections and tells when the current window rolls over.
type Decision struct {
	Allowed    bool
	Key        string
	Count      int64
	Remaining  int
	RetryAfter time.Duration
}
