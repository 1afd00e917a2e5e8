package services

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFitPrompt_UnderBudget(t *testing.T) {
	text := "Summarize the quarterly numbers."
	got := FitPrompt(text, 100)
	if got.WasTrimmed {
		t.Error("WasTrimmed should be false under budget")
	}
	if got.Text != text {
		t.Errorf("Text = %q, want unchanged", got.Text)
	}
	if got.TokenCount != EstimateTokens(text) {
		t.Errorf("TokenCount = %d, want %d", got.TokenCount, EstimateTokens(text))
	}
}

func TestFitPrompt_TokenCountMatchesReturnedText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxTokens int
	}{
		{"empty", "", 0},
		{"small over", strings.Repeat("a", 41), 10},
		{"large", strings.Repeat("lorem ipsum ", 5000), 1000},
		{"zero budget", strings.Repeat("b", 400), 0},
		{"negative budget", strings.Repeat("c", 400), -5},
		{"multibyte", strings.Repeat("héllo wörld ", 300), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitPrompt(tt.text, tt.maxTokens)
			if got.TokenCount != EstimateTokens(got.Text) {
				t.Errorf("TokenCount = %d, estimate of returned text = %d", got.TokenCount, EstimateTokens(got.Text))
			}
			if !strings.HasPrefix(tt.text, strings.TrimSuffix(got.Text, PromptTruncationNotice)) {
				t.Error("fitted text should be a prefix of the input")
			}
		})
	}
}

func TestFitPrompt_ProportionalCut(t *testing.T) {
	text := strings.Repeat("x", 4000) // 1000 tokens
	got := FitPrompt(text, 250)

	if !got.WasTrimmed {
		t.Fatal("expected truncation")
	}
	if !strings.HasSuffix(got.Text, PromptTruncationNotice) {
		t.Error("truncated prompt must end with the notice")
	}
	kept := strings.TrimSuffix(got.Text, PromptTruncationNotice)
	if len(kept) != 1000 {
		t.Errorf("kept %d chars, want 1000", len(kept))
	}
}

func TestFitPrompt_DegenerateBudgetLeavesNotice(t *testing.T) {
	got := FitPrompt(strings.Repeat("y", 100), 0)
	if got.Text != PromptTruncationNotice {
		t.Errorf("Text = %q, want only the notice", got.Text)
	}
	if !got.WasTrimmed {
		t.Error("WasTrimmed should be true")
	}
}

func TestFitPrompt_DoesNotSplitRunes(t *testing.T) {
	text := strings.Repeat("日本語", 100)
	got := FitPrompt(text, 30)
	kept := strings.TrimSuffix(got.Text, PromptTruncationNotice)
	if !utf8.ValidString(kept) {
		t.Fatal("cut produced an invalid UTF-8 sequence")
	}
}
