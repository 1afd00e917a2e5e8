package models

// CompletionMessage is one prior turn of textual context sent to the model
type CompletionMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the outbound request body before shaping.
// Data is arbitrary decoded JSON (see services.OrderedMap for key order).
type CompletionRequest struct {
	Prompt  string              `json:"prompt"`
	Context []CompletionMessage `json:"context,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
}

// ShapeReport describes what shaping did to a request
type ShapeReport struct {
	DataTrimmed      bool `json:"data_trimmed"`
	ContextDropped   int  `json:"context_dropped"`
	PromptTrimmed    bool `json:"prompt_trimmed"`
	DataTokens       int  `json:"data_tokens"`
	ContextTokens    int  `json:"context_tokens"`
	PromptTokens     int  `json:"prompt_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	TotalTokenBudget int  `json:"total_token_budget"`
}

// CompletionResult is a model answer after chart extraction
type CompletionResult struct {
	RequestID     string       `json:"request_id"`
	Model         string       `json:"model,omitempty"`
	Text          string       `json:"text"`
	Charts        []ChartSpec  `json:"charts"`
	DroppedCharts int          `json:"dropped_charts"`
	Shape         *ShapeReport `json:"shape,omitempty"`
}
