package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequestBody is returned when an outbound body is not valid JSON
var ErrInvalidRequestBody = errors.New("request body is not valid JSON")

// ErrModelClientUnavailable is returned when no model client handle was configured
var ErrModelClientUnavailable = errors.New("model client not configured")

// ErrCacheMiss is returned by cache tiers that have no entry for a key
var ErrCacheMiss = errors.New("cache miss")

// ErrEmptyCompletion is returned when the model answered without any choices
var ErrEmptyCompletion = errors.New("model returned no choices")

// ModelError is a non-2xx answer from the model endpoint
type ModelError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // set for quota errors
}

func (e *ModelError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("model request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("model request failed with status %d: %s", e.StatusCode, e.Message)
}

// BudgetExceededError means trimming could not bring a request under the hard
// total ceiling. The request must be rejected rather than sent.
type BudgetExceededError struct {
	Estimated int // token estimate of the shaped request
	Ceiling   int // configured total budget
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("request too large: ~%d tokens after trimming exceeds the %d token limit", e.Estimated, e.Ceiling)
}

// IsBudgetExceeded reports whether err (or anything it wraps) is a BudgetExceededError
func IsBudgetExceeded(err error) (*BudgetExceededError, bool) {
	var be *BudgetExceededError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
