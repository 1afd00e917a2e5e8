package services

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

var quotaPatterns = []string{
	"quota exceeded",
	"rate limit",
	"too many requests",
	"request limit",
	"tokens per minute",
	"requests per minute",
	"daily limit",
	"insufficient_quota",
	"billing",
	"rate_limit_exceeded",
	"quota_exceeded",
}

// IsQuotaError detects if a model error answer is about quota exhaustion or rate limiting
func IsQuotaError(statusCode int, responseBody string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	lowerBody := strings.ToLower(responseBody)
	for _, pattern := range quotaPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}
	return false
}

// CooldownDuration determines how long to stop calling the model after a quota error.
// A Retry-After header in seconds takes precedence.
func CooldownDuration(statusCode int, responseBody, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	lowerBody := strings.ToLower(responseBody)

	// Daily limit or billing issues - cool down for a long time
	if strings.Contains(lowerBody, "daily limit") ||
		strings.Contains(lowerBody, "billing") ||
		strings.Contains(lowerBody, "insufficient_quota") {
		return 1 * time.Hour
	}

	// Rate limit (per-minute) - short cooldown
	if statusCode == http.StatusTooManyRequests ||
		strings.Contains(lowerBody, "tokens per minute") ||
		strings.Contains(lowerBody, "requests per minute") {
		return 1 * time.Minute
	}

	return 5 * time.Minute
}

// cooldown remembers until when the model endpoint must not be called
type cooldown struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

func newCooldown() *cooldown {
	return &cooldown{now: time.Now}
}

// start extends the cooldown to at least d from now
func (c *cooldown) start(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if until := c.now().Add(d); until.After(c.until) {
		c.until = until
	}
}

func (c *cooldown) remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rem := c.until.Sub(c.now()); rem > 0 {
		return rem
	}
	return 0
}
