package services

import (
	"fmt"

	"llmboundary/internal/models"
)

// EstimateTokens returns an approximate token count using the ~4 chars/token heuristic.
// It is not a tokenizer; every budget in this package accepts the imprecision.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateValueTokens estimates the tokens of a value in its serialized JSON form.
func EstimateValueTokens(v interface{}) int {
	return EstimateTokens(serializeValue(v))
}

// EstimateMessagesTokens estimates the total token count for a set of context messages.
// Accounts for role overhead (~4 tokens per message for role, separators).
func EstimateMessagesTokens(messages []models.CompletionMessage) int {
	total := 0
	for _, msg := range messages {
		total += 4 // role + separators overhead per message
		total += EstimateTokens(msg.Content)
	}
	return total
}

// serializeValue renders v the way it will travel in the request body.
// HTML escaping is off so "<" counts as one character, not six.
func serializeValue(v interface{}) string {
	b, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
