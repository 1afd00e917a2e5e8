package services

import (
	"math"
	"unicode/utf8"
)

// PromptTruncationNotice is appended to every prompt that had to be cut
const PromptTruncationNotice = "\n\n[... prompt truncated to fit the context window ...]"

// PromptFitResult is the outcome of fitting prompt text into a token budget.
// TokenCount is always computed on Text, the text actually returned.
type PromptFitResult struct {
	Text       string `json:"text"`
	WasTrimmed bool   `json:"was_trimmed"`
	TokenCount int    `json:"token_count"`
}

// FitPrompt cuts text proportionally so it fits maxTokens and appends a fixed notice.
// A tiny budget may cut everything, leaving only the notice; that is not an error.
func FitPrompt(text string, maxTokens int) PromptFitResult {
	estimate := EstimateTokens(text)
	if estimate <= maxTokens {
		return PromptFitResult{Text: text, WasTrimmed: false, TokenCount: estimate}
	}

	budget := maxTokens
	if budget < 0 {
		budget = 0
	}
	cut := int(math.Floor(float64(len(text)) * float64(budget) / float64(estimate)))
	if cut > len(text) {
		cut = len(text)
	}
	// Never split a multi-byte character.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	fitted := text[:cut] + PromptTruncationNotice
	return PromptFitResult{
		Text:       fitted,
		WasTrimmed: true,
		TokenCount: EstimateTokens(fitted),
	}
}
